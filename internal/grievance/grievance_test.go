package grievance_test

import (
	"time"

	"github.com/frahmantamala/grievance-management/internal"
	"github.com/frahmantamala/grievance-management/internal/auth"
	"github.com/frahmantamala/grievance-management/internal/core/role"
	"github.com/frahmantamala/grievance-management/internal/grievance"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Grievance", func() {
	DescribeTable("Slug",
		func(name, want string) {
			Expect(grievance.Slug(name)).To(Equal(want))
		},
		Entry("single word", "Hostel", "hostel"),
		Entry("spaces", "IT Services", "it_services"),
		Entry("runs of separators", "  Exam -- Cell / Block B ", "exam_cell_block_b"),
		Entry("digits kept", "Lab 42", "lab_42"),
		Entry("only separators", " - ", ""),
	)

	It("labels transfers with the target slug", func() {
		Expect(grievance.TransferLabel("IT Services", 3)).To(Equal("transferred_to_it_services"))
	})

	It("labels transfers by department id when the name has no letters or digits", func() {
		Expect(grievance.TransferLabel("---", 7)).To(Equal("transferred_to_7"))
		Expect(grievance.TransferLabel("#1", 7)).To(Equal("transferred_to_1"))
	})

	Describe("transitions", func() {
		var g *grievance.Grievance

		BeforeEach(func() {
			g = &grievance.Grievance{ID: 1, UserID: 10, DepartmentID: 2, Status: grievance.StatusPending}
		})

		It("resolves open grievances only", func() {
			Expect(g.CanBeResolved()).To(BeTrue())
			g.Status = grievance.StatusInProgress
			Expect(g.CanBeResolved()).To(BeTrue())
			g.Status = grievance.StatusSolved
			Expect(g.CanBeResolved()).To(BeFalse())
			g.Status = grievance.StatusClosed
			Expect(g.CanBeResolved()).To(BeFalse())
		})

		It("closes resolved grievances only", func() {
			Expect(g.CanBeClosed()).To(BeFalse())
			g.Status = grievance.StatusNotSolved
			Expect(g.CanBeClosed()).To(BeTrue())
			g.Status = grievance.StatusClosed
			Expect(g.CanBeClosed()).To(BeFalse())
		})

		It("records who resolved and when", func() {
			at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
			g.Resolve(7, false, at)
			Expect(g.Status).To(Equal(grievance.StatusNotSolved))
			Expect(*g.ResolvedBy).To(Equal(int64(7)))
			Expect(*g.ResolvedAt).To(Equal(at))
		})

		It("drops the assignment on transfer", func() {
			g.Status = grievance.StatusInProgress
			g.AssignedTo = ptr(int64(5))
			g.TransferTo(3, time.Now())
			Expect(g.DepartmentID).To(Equal(int64(3)))
			Expect(g.AssignedTo).To(BeNil())
			Expect(g.Status).To(Equal(grievance.StatusPending))
		})
	})

	Describe("projections", func() {
		g := &grievance.Grievance{
			ID:           4,
			TicketID:     "ticket",
			UserID:       10,
			DepartmentID: 2,
			AssignedTo:   ptr(int64(5)),
			Status:       grievance.StatusInProgress,
			Attachments:  []grievance.Attachment{{ID: 9, FileName: "a.png", FilePath: "grievances/x.png"}},
		}

		It("gives submitters the limited view", func() {
			v := grievance.ProjectFor(&auth.Actor{ID: 10, Role: role.User}, g)
			limited, ok := v.(grievance.Limited)
			Expect(ok).To(BeTrue())
			Expect(limited.TicketID).To(Equal("ticket"))
			Expect(limited.Attachments).To(HaveLen(1))
			Expect(limited.Attachments[0].FileURL).To(Equal("/api/v1/grievances/attachments/9"))
		})

		It("gives staff the full view", func() {
			for _, r := range []role.Role{role.Employee, role.Admin, role.SuperAdmin} {
				v := grievance.ProjectFor(&auth.Actor{ID: 1, Role: r}, g)
				full, ok := v.(grievance.Full)
				Expect(ok).To(BeTrue(), string(r))
				Expect(*full.AssignedTo).To(Equal(int64(5)))
			}
		})
	})

	Describe("ScopeFor", func() {
		dept := int64(3)

		It("derives the window from the role", func() {
			s, err := grievance.ScopeFor(&auth.Actor{ID: 1, Role: role.User, IsActive: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(*s.UserID).To(Equal(int64(1)))

			s, err = grievance.ScopeFor(&auth.Actor{ID: 2, Role: role.Employee, DepartmentID: &dept, IsActive: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(*s.AssigneeID).To(Equal(int64(2)))

			s, err = grievance.ScopeFor(&auth.Actor{ID: 3, Role: role.Admin, DepartmentID: &dept, IsActive: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(*s.DepartmentID).To(Equal(dept))

			s, err = grievance.ScopeFor(&auth.Actor{ID: 4, Role: role.SuperAdmin, IsActive: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(s).To(Equal(grievance.Scope{}))
		})

		It("refuses inactive actors and admins without a department", func() {
			_, err := grievance.ScopeFor(&auth.Actor{ID: 1, Role: role.User})
			Expect(err).To(MatchError(internal.ErrPermissionDenied))

			_, err = grievance.ScopeFor(&auth.Actor{ID: 3, Role: role.Admin, IsActive: true})
			Expect(err).To(MatchError(internal.ErrPermissionDenied))
		})
	})
})
