package invoice

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BoltDB", func() {
	var db *BoltDB

	BeforeEach(func() {
		path := filepath.Join(GinkgoT().TempDir(), "test.db")
		var err error
		db, err = NewBoltDB(path)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(db.Close()).To(Succeed())
	})

	sampleRecord := func(id string) *Record {
		return &Record{
			ID:            id,
			InvoiceNumber: "FV001/2025",
			IssueDate:     NewDate(2025, time.January, 15),
			SellerName:    "ACME Corp",
			SellerNIP:     "1234567819",
			BuyerName:     "XYZ Solutions",
			Items: []Item{
				{Description: "Laptop", Quantity: 1, UnitPriceNet: 4500, VATRate: 23, TotalGross: 5535},
			},
			TotalNetSum:   4500,
			TotalGrossSum: 5535,
			Currency:      "PLN",
		}
	}

	It("should save and retrieve a record", func() {
		Expect(db.SaveRecord(sampleRecord("inv-1"))).To(Succeed())

		got, err := db.GetRecord("inv-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.InvoiceNumber).To(Equal("FV001/2025"))
		Expect(got.SellerNIP).To(Equal("1234567819"))
		Expect(got.Items).To(HaveLen(1))
		Expect(got.IssueDate.String()).To(Equal("2025-01-15"))
	})

	It("should return an error for a missing record", func() {
		_, err := db.GetRecord("no-such-id")
		Expect(err).To(HaveOccurred())
	})

	It("should overwrite on save with the same ID", func() {
		Expect(db.SaveRecord(sampleRecord("inv-1"))).To(Succeed())

		updated := sampleRecord("inv-1")
		updated.BuyerName = "Someone Else"
		Expect(db.SaveRecord(updated)).To(Succeed())

		got, err := db.GetRecord("inv-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.BuyerName).To(Equal("Someone Else"))

		records, err := db.ListRecords()
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(1))
	})

	It("should list all records", func() {
		Expect(db.SaveRecord(sampleRecord("inv-1"))).To(Succeed())
		Expect(db.SaveRecord(sampleRecord("inv-2"))).To(Succeed())

		records, err := db.ListRecords()
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(2))
	})

	It("should return an empty slice when there are no records", func() {
		records, err := db.ListRecords()
		Expect(err).NotTo(HaveOccurred())
		Expect(records).NotTo(BeNil())
		Expect(records).To(BeEmpty())
	})

	It("should delete a record", func() {
		Expect(db.SaveRecord(sampleRecord("inv-1"))).To(Succeed())
		Expect(db.DeleteRecord("inv-1")).To(Succeed())

		_, err := db.GetRecord("inv-1")
		Expect(err).To(HaveOccurred())
	})
})
