package grievance_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/frahmantamala/grievance-management/internal"
	"github.com/frahmantamala/grievance-management/internal/auth"
	"github.com/frahmantamala/grievance-management/internal/core/common/pagination"
	"github.com/frahmantamala/grievance-management/internal/core/role"
	"github.com/frahmantamala/grievance-management/internal/grievance"
	"github.com/frahmantamala/grievance-management/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// stubService answers with canned values and remembers what the handler passed in.
type stubService struct {
	grievance *grievance.Grievance
	err       error

	createDTO    grievance.CreateGrievanceDTO
	uploadBodies map[string]string
	resolveID    int64
	resolveDTO   grievance.ResolveDTO
	transferDTO  grievance.TransferDTO
	closeDTO     grievance.CloseDTO
	filter       grievance.Filter
	params       pagination.Params
	assigned     int
	stream       *grievance.AttachmentStream
}

func (s *stubService) Create(_ context.Context, _ *auth.Actor, dto grievance.CreateGrievanceDTO, uploads []grievance.Upload) (*grievance.Grievance, error) {
	s.createDTO = dto
	s.uploadBodies = map[string]string{}
	for _, up := range uploads {
		b, err := io.ReadAll(up.Reader)
		if err != nil {
			return nil, err
		}
		s.uploadBodies[up.Name] = string(b)
	}
	return s.grievance, s.err
}

func (s *stubService) Assign(context.Context, *auth.Actor) (int, error) {
	return s.assigned, s.err
}

func (s *stubService) Resolve(_ context.Context, _ *auth.Actor, id int64, dto grievance.ResolveDTO) (*grievance.Grievance, error) {
	s.resolveID, s.resolveDTO = id, dto
	return s.grievance, s.err
}

func (s *stubService) Close(_ context.Context, _ *auth.Actor, _ string, dto grievance.CloseDTO) (*grievance.Grievance, error) {
	s.closeDTO = dto
	return s.grievance, s.err
}

func (s *stubService) Transfer(_ context.Context, _ *auth.Actor, _ string, dto grievance.TransferDTO) (*grievance.Grievance, error) {
	s.transferDTO = dto
	return s.grievance, s.err
}

func (s *stubService) GetByTicket(context.Context, *auth.Actor, string) (*grievance.Grievance, error) {
	return s.grievance, s.err
}

func (s *stubService) History(context.Context, *auth.Actor, string) ([]grievance.HistoryEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []grievance.HistoryEntry{{ID: 1, Status: grievance.StatusPending}}, nil
}

func (s *stubService) List(_ context.Context, actor *auth.Actor, filter grievance.Filter, params pagination.Params) (pagination.Page[grievance.View], error) {
	s.filter, s.params = filter, params
	if s.err != nil {
		return pagination.Page[grievance.View]{}, s.err
	}
	items := []grievance.View{grievance.ProjectFor(actor, s.grievance)}
	return pagination.NewPage(items, 1, params), nil
}

func (s *stubService) OpenAttachment(context.Context, *auth.Actor, int64) (*grievance.AttachmentStream, error) {
	return s.stream, s.err
}

var _ = Describe("Grievance Handler", func() {
	var (
		router *chi.Mux
		svc    *stubService
		caller *auth.Actor
	)

	BeforeEach(func() {
		svc = &stubService{grievance: &grievance.Grievance{
			ID:           3,
			TicketID:     "t-3",
			UserID:       10,
			DepartmentID: 2,
			AssignedTo:   ptr(int64(5)),
			Status:       grievance.StatusInProgress,
		}}
		caller = &auth.Actor{ID: 10, Role: role.User, IsActive: true}
		handler := grievance.NewHandler(transport.NewBaseHandler(slogger), svc)

		router = chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if caller != nil {
					r = r.WithContext(auth.ContextWithActor(r.Context(), caller))
				}
				next.ServeHTTP(w, r)
			})
		})
		router.Post("/grievances", handler.CreateGrievance)
		router.Get("/grievances", handler.ListGrievances)
		router.Post("/grievances/assign", handler.AssignGrievances)
		router.Get("/grievances/attachments/{attachment_id}", handler.DownloadAttachment)
		router.Get("/grievances/{id}", handler.GetGrievance)
		router.Get("/grievances/{id}/history", handler.GetHistory)
		router.Post("/grievances/{id}/resolve", handler.ResolveGrievance)
		router.Post("/grievances/{id}/transfer", handler.TransferGrievance)
		router.Post("/grievances/{id}/close", handler.CloseGrievance)
	})

	do := func(method, path, contentType string, body io.Reader) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, body)
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	decode := func(w *httptest.ResponseRecorder) map[string]any {
		var out map[string]any
		Expect(json.NewDecoder(w.Body).Decode(&out)).To(Succeed())
		return out
	}

	Describe("CreateGrievance", func() {
		multipartBody := func(fields map[string]string, files map[string]string) (string, io.Reader) {
			var buf bytes.Buffer
			mw := multipart.NewWriter(&buf)
			for k, v := range fields {
				Expect(mw.WriteField(k, v)).To(Succeed())
			}
			for name, content := range files {
				fw, err := mw.CreateFormFile("files", name)
				Expect(err).NotTo(HaveOccurred())
				_, err = fw.Write([]byte(content))
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(mw.Close()).To(Succeed())
			return mw.FormDataContentType(), &buf
		}

		It("passes form fields and every file to the service", func() {
			ct, body := multipartBody(
				map[string]string{"content": "broken chair", "department_id": "2"},
				map[string]string{"a.txt": "alpha", "b.txt": "beta"},
			)
			w := do(http.MethodPost, "/grievances", ct, body)

			Expect(w.Code).To(Equal(http.StatusCreated))
			Expect(svc.createDTO).To(Equal(grievance.CreateGrievanceDTO{DepartmentID: 2, Content: "broken chair"}))
			Expect(svc.uploadBodies).To(Equal(map[string]string{"a.txt": "alpha", "b.txt": "beta"}))

			out := decode(w)
			Expect(out).To(HaveKeyWithValue("ticket_id", "t-3"))
			Expect(out).NotTo(HaveKey("assigned_to"))
		})

		It("rejects a bad department id", func() {
			ct, body := multipartBody(map[string]string{"content": "x", "department_id": "abc"}, nil)
			w := do(http.MethodPost, "/grievances", ct, body)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("rejects bodies that are not multipart", func() {
			w := do(http.MethodPost, "/grievances", "application/json", strings.NewReader(`{}`))
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("requires an authenticated actor", func() {
			caller = nil
			ct, body := multipartBody(map[string]string{"content": "x", "department_id": "2"}, nil)
			w := do(http.MethodPost, "/grievances", ct, body)
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
		})
	})

	It("reports the assignment count in a header", func() {
		caller = &auth.Actor{ID: 1, Role: role.SuperAdmin, IsActive: true}
		svc.assigned = 3
		w := do(http.MethodPost, "/grievances/assign", "", nil)
		Expect(w.Code).To(Equal(http.StatusNoContent))
		Expect(w.Header().Get(grievance.AssignedCountHeader)).To(Equal("3"))
	})

	Describe("ResolveGrievance", func() {
		BeforeEach(func() {
			caller = &auth.Actor{ID: 1, Role: role.SuperAdmin, IsActive: true}
		})

		It("defaults to solved", func() {
			w := do(http.MethodPost, "/grievances/3/resolve", "", nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(svc.resolveID).To(Equal(int64(3)))
			Expect(svc.resolveDTO.Solved).To(BeTrue())
			Expect(svc.resolveDTO.ResolverID).To(BeNil())
			Expect(decode(w)).To(HaveKey("assigned_to"))
		})

		It("reads resolver and outcome from the query", func() {
			w := do(http.MethodPost, "/grievances/3/resolve?resolver_id=5&solved=false", "", nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(*svc.resolveDTO.ResolverID).To(Equal(int64(5)))
			Expect(svc.resolveDTO.Solved).To(BeFalse())
		})

		It("rejects malformed parameters", func() {
			Expect(do(http.MethodPost, "/grievances/x/resolve", "", nil).Code).To(Equal(http.StatusBadRequest))
			Expect(do(http.MethodPost, "/grievances/3/resolve?solved=maybe", "", nil).Code).To(Equal(http.StatusBadRequest))
			Expect(do(http.MethodPost, "/grievances/3/resolve?resolver_id=-1", "", nil).Code).To(Equal(http.StatusBadRequest))
		})

		It("maps service errors", func() {
			svc.err = internal.ErrInvalidStatus
			w := do(http.MethodPost, "/grievances/3/resolve", "", nil)
			Expect(w.Code).To(Equal(internal.ErrInvalidStatus.StatusCode))
		})
	})

	It("decodes transfer and close bodies", func() {
		caller = &auth.Actor{ID: 1, Role: role.SuperAdmin, IsActive: true}

		w := do(http.MethodPost, "/grievances/t-3/transfer", "application/json", strings.NewReader(`{"new_department_id":4,"notes":"wrong desk"}`))
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(svc.transferDTO.NewDepartmentID).To(Equal(int64(4)))
		Expect(*svc.transferDTO.Notes).To(Equal("wrong desk"))

		Expect(do(http.MethodPost, "/grievances/t-3/transfer", "application/json", strings.NewReader(`{`)).Code).To(Equal(http.StatusBadRequest))

		w = do(http.MethodPost, "/grievances/t-3/close", "", nil)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(svc.closeDTO.Notes).To(BeNil())
	})

	Describe("ListGrievances", func() {
		It("parses filters and paging", func() {
			w := do(http.MethodGet, "/grievances?status=pending&department_id=2&created_from=2025-01-01T00:00:00Z&limit=10&skip=5", "", nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(svc.filter.Status).To(Equal("pending"))
			Expect(*svc.filter.DepartmentID).To(Equal(int64(2)))
			Expect(svc.filter.CreatedFrom).NotTo(BeNil())
			Expect(svc.params.Limit).To(Equal(10))
			Expect(svc.params.Skip).To(Equal(5))
			Expect(decode(w)).To(HaveKeyWithValue("total", BeNumerically("==", 1)))
		})

		It("rejects malformed timestamps", func() {
			w := do(http.MethodGet, "/grievances?created_to=yesterday", "", nil)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	It("maps not found and forbidden", func() {
		svc.err = internal.ErrGrievanceNotFound
		Expect(do(http.MethodGet, "/grievances/t-9", "", nil).Code).To(Equal(http.StatusNotFound))
		svc.err = internal.ErrPermissionDenied
		Expect(do(http.MethodGet, "/grievances/t-9/history", "", nil).Code).To(Equal(http.StatusForbidden))
	})

	It("streams attachments as downloads", func() {
		svc.stream = &grievance.AttachmentStream{
			Attachment:  grievance.Attachment{ID: 7, FileName: "report final.pdf", FileSize: 5},
			ContentType: "application/pdf",
			Body:        io.NopCloser(strings.NewReader("%PDF-")),
		}
		w := do(http.MethodGet, "/grievances/attachments/7", "", nil)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("Content-Type")).To(Equal("application/pdf"))
		Expect(w.Header().Get("Content-Disposition")).To(Equal(`attachment; filename="report final.pdf"`))
		Expect(w.Body.String()).To(Equal("%PDF-"))
	})
})
