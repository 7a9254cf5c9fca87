package order

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BoltAliasDB", func() {
	var (
		tempDir string
		dbPath  string
		db      *BoltAliasDB
	)

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "orderscan-aliasdb-*")
		Expect(err).NotTo(HaveOccurred())
		dbPath = filepath.Join(tempDir, "aliases.db")

		db, err = NewBoltAliasDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		db.Close()
		os.RemoveAll(tempDir)
	})

	It("loads empty tables from a fresh database", func() {
		items, err := db.LoadItems()
		Expect(err).NotTo(HaveOccurred())
		Expect(items.Entries()).To(BeEmpty())

		stores, err := db.LoadStores()
		Expect(err).NotTo(HaveOccurred())
		Expect(stores.Entries()).To(BeEmpty())
	})

	It("round-trips a table preserving registration order and variants", func() {
		table := NewAliasTable()
		table.AddEntry("青梗菜")
		table.AddVariant("青梗菜", "チンゲン菜")
		table.AddEntry("春菊")
		table.AddEntry("胡瓜(バラ)")

		Expect(db.SaveItems(table)).To(Succeed())

		loaded, err := db.LoadItems()
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Entries()).To(Equal([]string{"青梗菜", "春菊", "胡瓜(バラ)"}))
		Expect(loaded.Variants("青梗菜")).To(Equal([]string{"チンゲン菜"}))
	})

	It("keeps item and store tables separate", func() {
		items := NewAliasTable()
		items.AddEntry("春菊")
		stores := NewAliasTable()
		stores.AddEntry("やまと屋")

		Expect(db.SaveItems(items)).To(Succeed())
		Expect(db.SaveStores(stores)).To(Succeed())

		loadedItems, err := db.LoadItems()
		Expect(err).NotTo(HaveOccurred())
		Expect(loadedItems.Entries()).To(Equal([]string{"春菊"}))

		loadedStores, err := db.LoadStores()
		Expect(err).NotTo(HaveOccurred())
		Expect(loadedStores.Entries()).To(Equal([]string{"やまと屋"}))
	})

	It("drops removed entries on rewrite", func() {
		table := NewAliasTable()
		table.AddEntry("春菊")
		table.AddEntry("青梗菜")
		Expect(db.SaveItems(table)).To(Succeed())

		table.Remove("春菊")
		Expect(db.SaveItems(table)).To(Succeed())

		loaded, err := db.LoadItems()
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Entries()).To(Equal([]string{"青梗菜"}))
	})

	It("persists across reopen", func() {
		table := NewAliasTable()
		table.AddEntry("春菊")
		Expect(db.SaveItems(table)).To(Succeed())
		Expect(db.Close()).To(Succeed())

		reopened, err := NewBoltAliasDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
		defer reopened.Close()

		loaded, err := reopened.LoadItems()
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Entries()).To(Equal([]string{"春菊"}))
	})
})
