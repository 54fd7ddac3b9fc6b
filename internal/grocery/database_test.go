package grocery

import (
	"errors"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BoltDB", func() {
	var (
		tmpDir string
		dbPath string
		db     *BoltDB
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		dbPath = filepath.Join(tmpDir, "test.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	Describe("SaveAnalysis", func() {
		var (
			analysis *Analysis
			err      error
		)

		BeforeEach(func() {
			analysis = &Analysis{
				ID:     "test-id",
				Source: SourceText,
				Input:  "Milk - 1 - 3",
				Items: []Item{
					{Name: "Milk", Quantity: 1, Price: 300, Category: CategoryEssential},
					{Name: "Chips", Quantity: 2, Price: 500, Category: CategoryNonEssential},
				},
				Suggestions: []string{"Skip the chips"},
				Summary:     Summary{TotalSpent: 800, EssentialsTotal: 300, NonEssentialsTotal: 500},
				Currency:    "Rs.",
				CreatedAt:   time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
				UpdatedAt:   time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			}
		})

		JustBeforeEach(func() {
			err = db.SaveAnalysis(analysis)
		})

		When("saving succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should save the analysis to the database", func() {
				saved, getErr := db.GetAnalysis("test-id")
				Expect(getErr).NotTo(HaveOccurred())
				Expect(saved.ID).To(Equal("test-id"))
			})

			It("should keep the items and their categories", func() {
				saved, _ := db.GetAnalysis("test-id")
				Expect(saved.Items).To(Equal(analysis.Items))
			})

			It("should keep the summary", func() {
				saved, _ := db.GetAnalysis("test-id")
				Expect(saved.Summary.NonEssentialsTotal).To(Equal(500))
			})
		})

		When("the analysis already exists", func() {
			BeforeEach(func() {
				Expect(db.SaveAnalysis(&Analysis{ID: "test-id", Input: "old"})).To(Succeed())
			})

			It("should overwrite it", func() {
				saved, _ := db.GetAnalysis("test-id")
				Expect(saved.Input).To(Equal("Milk - 1 - 3"))
			})
		})
	})

	Describe("GetAnalysis", func() {
		var (
			analysisID string
			analysis   *Analysis
			err        error
		)

		JustBeforeEach(func() {
			analysis, err = db.GetAnalysis(analysisID)
		})

		When("analysis exists", func() {
			BeforeEach(func() {
				analysisID = "test-id"
				Expect(db.SaveAnalysis(&Analysis{ID: "test-id", Currency: "$"})).To(Succeed())
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return the correct analysis", func() {
				Expect(analysis.ID).To(Equal("test-id"))
				Expect(analysis.Currency).To(Equal("$"))
			})
		})

		When("analysis does not exist", func() {
			var expectedErr error

			BeforeEach(func() {
				analysisID = "nonexistent"
				expectedErr = errors.New("analysis not found: nonexistent")
			})

			It("returns the error", func() {
				Expect(err).To(MatchError(expectedErr.Error()))
			})

			It("wraps ErrNotFound", func() {
				Expect(err).To(MatchError(ErrNotFound))
			})
		})
	})

	Describe("ListAnalyses", func() {
		var (
			analyses []*Analysis
			err      error
		)

		JustBeforeEach(func() {
			analyses, err = db.ListAnalyses()
		})

		When("analyses exist", func() {
			BeforeEach(func() {
				Expect(db.SaveAnalysis(&Analysis{ID: "id1"})).To(Succeed())
				Expect(db.SaveAnalysis(&Analysis{ID: "id2"})).To(Succeed())
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return all analyses", func() {
				Expect(analyses).To(HaveLen(2))
			})
		})

		When("no analyses exist", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return an empty, non-nil list", func() {
				Expect(analyses).NotTo(BeNil())
				Expect(analyses).To(BeEmpty())
			})
		})
	})

	Describe("DeleteAnalysis", func() {
		var (
			analysisID string
			err        error
		)

		JustBeforeEach(func() {
			err = db.DeleteAnalysis(analysisID)
		})

		When("analysis exists", func() {
			BeforeEach(func() {
				analysisID = "test-id"
				Expect(db.SaveAnalysis(&Analysis{ID: "test-id"})).To(Succeed())
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should remove the analysis from the database", func() {
				_, getErr := db.GetAnalysis("test-id")
				Expect(getErr).To(MatchError(ErrNotFound))
			})
		})

		When("analysis does not exist", func() {
			BeforeEach(func() {
				analysisID = "nonexistent"
			})

			It("returns ErrNotFound", func() {
				Expect(err).To(MatchError(ErrNotFound))
			})
		})
	})

	Describe("Scans", func() {
		var scan *Scan

		BeforeEach(func() {
			scan = &Scan{
				ID:          "scan-1",
				Filename:    "scan-1_receipt.jpg",
				ContentType: "image/jpeg",
				RawText:     "MILK 3.00",
				CleanedText: "Milk - 1 - 3",
				CreatedAt:   time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			}
			Expect(db.SaveScan(scan)).To(Succeed())
		})

		It("should read a saved scan back", func() {
			saved, err := db.GetScan("scan-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.CleanedText).To(Equal("Milk - 1 - 3"))
			Expect(saved.ContentType).To(Equal("image/jpeg"))
		})

		It("should keep scans and analyses apart", func() {
			_, err := db.GetAnalysis("scan-1")
			Expect(err).To(MatchError(ErrNotFound))
		})

		It("should return an error for a missing scan", func() {
			_, err := db.GetScan("missing")
			Expect(err).To(MatchError("scan not found: missing"))
		})

		It("should delete a scan", func() {
			Expect(db.DeleteScan("scan-1")).To(Succeed())
			_, err := db.GetScan("scan-1")
			Expect(err).To(MatchError(ErrNotFound))
		})

		It("should return ErrNotFound when deleting a missing scan", func() {
			Expect(db.DeleteScan("missing")).To(MatchError(ErrNotFound))
		})
	})

	Describe("persistence", func() {
		It("should keep data across reopen", func() {
			Expect(db.SaveAnalysis(&Analysis{ID: "kept"})).To(Succeed())
			Expect(db.Close()).To(Succeed())

			reopened, err := NewBoltDB(dbPath)
			Expect(err).NotTo(HaveOccurred())
			db = reopened

			saved, err := db.GetAnalysis("kept")
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.ID).To(Equal("kept"))
		})
	})

	Describe("Close", func() {
		It("should not return an error", func() {
			err := db.Close()
			Expect(err).NotTo(HaveOccurred())
			db = nil
		})
	})
})
