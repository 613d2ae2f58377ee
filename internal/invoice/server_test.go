package invoice

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fakturai/fakturai/internal/document"
)

// multipartUpload builds a multipart request body with a single "file" part
func multipartUpload(filename string, data []byte) (*bytes.Buffer, string) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	Expect(err).NotTo(HaveOccurred())
	_, err = part.Write(data)
	Expect(err).NotTo(HaveOccurred())
	Expect(writer.Close()).To(Succeed())
	return &body, writer.FormDataContentType()
}

var _ = Describe("Server", func() {
	var (
		db         *mockDB
		storage    *mockStorage
		extractor  *mockExtractor
		rasterizer *fakeRasterizer
		server     *Server
	)

	newTestServer := func(auth BasicAuth) *Server {
		service := NewServiceWithDeps(db, extractor, storage,
			rasterizer, document.NewNormalizer(), &fixedIDGenerator{id: "test-id"},
			&fixedTimeSource{now: time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)})
		return NewServerWithMux(service, auth, http.NewServeMux())
	}

	BeforeEach(func() {
		db = newMockDB()
		storage = newMockStorage()
		extractor = &mockExtractor{candidate: validCandidate()}
		rasterizer = &fakeRasterizer{pageCount: 1}
		server = newTestServer(BasicAuth{})
	})

	Describe("POST /api/invoices", func() {
		It("should accept a JPEG upload and return the record", func() {
			body, contentType := multipartUpload("faktura.jpg", jpegBytes())
			req := httptest.NewRequest("POST", "/api/invoices", body)
			req.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()

			server.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusCreated))

			var record Record
			Expect(json.Unmarshal(w.Body.Bytes(), &record)).To(Succeed())
			Expect(record.ID).To(Equal("test-id"))
			Expect(record.InvoiceNumber).To(Equal("FV123/2025"))
			Expect(record.IssueDate.String()).To(Equal("2025-01-15"))
		})

		It("should reject an unsupported format with 415", func() {
			body, contentType := multipartUpload("notes.txt", []byte("plain text"))
			req := httptest.NewRequest("POST", "/api/invoices", body)
			req.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()

			server.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusUnsupportedMediaType))

			var resp map[string]string
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["error_kind"]).To(Equal("unsupported_format"))
		})

		It("should reject a request without a file part", func() {
			var body bytes.Buffer
			writer := multipart.NewWriter(&body)
			Expect(writer.Close()).To(Succeed())

			req := httptest.NewRequest("POST", "/api/invoices", &body)
			req.Header.Set("Content-Type", writer.FormDataContentType())
			w := httptest.NewRecorder()

			server.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("should map a schema violation to 422 with the failed fields", func() {
			extractor.candidate["seller_nip"] = "123"

			body, contentType := multipartUpload("faktura.jpg", jpegBytes())
			req := httptest.NewRequest("POST", "/api/invoices", body)
			req.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()

			server.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusUnprocessableEntity))

			var resp struct {
				ErrorKind string   `json:"error_kind"`
				Fields    []string `json:"fields"`
			}
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.ErrorKind).To(Equal("schema_violation"))
			Expect(resp.Fields).To(ContainElement("seller_nip"))
		})
	})

	Describe("password recovery endpoints", func() {
		BeforeEach(func() {
			rasterizer.encrypted = true
			rasterizer.password = "s3cret"
		})

		uploadLockedPDF := func() *httptest.ResponseRecorder {
			body, contentType := multipartUpload("locked.pdf", []byte("%PDF-1.4 locked"))
			req := httptest.NewRequest("POST", "/api/invoices", body)
			req.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, req)
			return w
		}

		submitPassword := func(password string) *httptest.ResponseRecorder {
			req := httptest.NewRequest("POST", "/api/invoices/password",
				strings.NewReader(`{"password":"`+password+`"}`))
			w := httptest.NewRecorder()
			server.ServeHTTP(w, req)
			return w
		}

		It("should answer 401 password_required for an encrypted upload", func() {
			w := uploadLockedPDF()
			Expect(w.Code).To(Equal(http.StatusUnauthorized))

			var resp map[string]string
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["error_kind"]).To(Equal("password_required"))
		})

		It("should answer 401 invalid_password for a wrong password", func() {
			uploadLockedPDF()

			w := submitPassword("wrong")
			Expect(w.Code).To(Equal(http.StatusUnauthorized))

			var resp map[string]string
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["error_kind"]).To(Equal("invalid_password"))
		})

		It("should complete the pipeline with the correct password", func() {
			uploadLockedPDF()

			w := submitPassword("s3cret")
			Expect(w.Code).To(Equal(http.StatusCreated))

			var record Record
			Expect(json.Unmarshal(w.Body.Bytes(), &record)).To(Succeed())
			Expect(record.ID).To(Equal("test-id"))
		})

		It("should cancel a pending session", func() {
			uploadLockedPDF()

			req := httptest.NewRequest("DELETE", "/api/invoices/password", nil)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, req)
			Expect(w.Code).To(Equal(http.StatusNoContent))

			Expect(submitPassword("s3cret").Code).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("record endpoints", func() {
		BeforeEach(func() {
			service := NewServiceWithDeps(db, extractor, storage,
				rasterizer, document.NewNormalizer(), &fixedIDGenerator{id: "test-id"},
				&fixedTimeSource{now: time.Now()})
			_, err := service.ProcessDocument(context.Background(), "faktura.pdf", []byte("%PDF-1.4 plain"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("should list invoices", func() {
			req := httptest.NewRequest("GET", "/api/invoices", nil)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))

			var records []Record
			Expect(json.Unmarshal(w.Body.Bytes(), &records)).To(Succeed())
			Expect(records).To(HaveLen(1))
		})

		It("should get a single invoice", func() {
			req := httptest.NewRequest("GET", "/api/invoices/test-id", nil)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))

			var record Record
			Expect(json.Unmarshal(w.Body.Bytes(), &record)).To(Succeed())
			Expect(record.SellerNIP).To(Equal("1234567819"))
		})

		It("should 404 on an unknown invoice", func() {
			req := httptest.NewRequest("GET", "/api/invoices/nope", nil)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})

		It("should delete an invoice", func() {
			req := httptest.NewRequest("DELETE", "/api/invoices/test-id", nil)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusNoContent))
			Expect(db.records).To(BeEmpty())
		})

		It("should serve the original file with its content type", func() {
			req := httptest.NewRequest("GET", "/api/invoices/test-id/file", nil)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(Equal("application/pdf"))
			Expect(w.Body.Len()).NotTo(BeZero())
		})

		It("should export the invoice as an Excel attachment", func() {
			req := httptest.NewRequest("GET", "/api/invoices/test-id/xlsx", nil)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(Equal("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"))
			Expect(w.Header().Get("Content-Disposition")).To(ContainSubstring("faktura_test-id.xlsx"))
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			server = newTestServer(BasicAuth{Username: "admin", Password: "pass"})
		})

		It("should reject requests without credentials", func() {
			req := httptest.NewRequest("GET", "/api/invoices", nil)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusUnauthorized))
			Expect(w.Header().Get("WWW-Authenticate")).To(ContainSubstring("Basic"))
		})

		It("should reject wrong credentials", func() {
			req := httptest.NewRequest("GET", "/api/invoices", nil)
			req.SetBasicAuth("admin", "nope")
			w := httptest.NewRecorder()
			server.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusUnauthorized))
		})

		It("should accept valid credentials", func() {
			req := httptest.NewRequest("GET", "/api/invoices", nil)
			req.SetBasicAuth("admin", "pass")
			w := httptest.NewRecorder()
			server.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
		})
	})
})
