package user_test

import (
	"context"

	"github.com/frahmantamala/grievance-management/internal"
	"github.com/frahmantamala/grievance-management/internal/auth"
	"github.com/frahmantamala/grievance-management/internal/core/common/pagination"
	"github.com/frahmantamala/grievance-management/internal/core/datamodel/dbtest"
	grievanceDatamodel "github.com/frahmantamala/grievance-management/internal/core/datamodel/grievance"
	"github.com/frahmantamala/grievance-management/internal/core/role"
	"github.com/frahmantamala/grievance-management/internal/department"
	departmentPostgres "github.com/frahmantamala/grievance-management/internal/department/postgres"
	"github.com/frahmantamala/grievance-management/internal/grievance"
	"github.com/frahmantamala/grievance-management/internal/user"
	userPostgres "github.com/frahmantamala/grievance-management/internal/user/postgres"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var _ = Describe("User Service", func() {
	var (
		ctx        context.Context
		db         *gorm.DB
		service    *user.Service
		deptID     int64
		superAdmin *auth.Actor
		admin      *auth.Actor
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = dbtest.Open()
		Expect(err).NotTo(HaveOccurred())

		dept, err := dbtest.CreateDepartment(db, "IT Services")
		Expect(err).NotTo(HaveOccurred())
		deptID = dept.ID

		policy := auth.NewPolicy(slogger)
		departments := department.NewService(departmentPostgres.NewDepartmentRepository(db), policy, nil, slogger)
		service = user.NewService(userPostgres.NewUserRepository(db), departments, policy, bcrypt.MinCost, slogger)

		sa, err := dbtest.CreateUser(db, "root@example.com", role.SuperAdmin, nil)
		Expect(err).NotTo(HaveOccurred())
		superAdmin = &auth.Actor{ID: sa.ID, Email: sa.Email, Role: role.SuperAdmin, IsActive: true}

		ad, err := dbtest.CreateUser(db, "admin@example.com", role.Admin, &deptID)
		Expect(err).NotTo(HaveOccurred())
		admin = &auth.Actor{ID: ad.ID, Email: ad.Email, Role: role.Admin, DepartmentID: &deptID, IsActive: true}
	})

	Describe("Create", func() {
		It("creates an employee with a hashed password", func() {
			u, err := service.Create(ctx, admin, user.CreateUserDTO{
				Email:        "Staff@Example.com",
				Password:     "password123",
				Role:         "employee",
				DepartmentID: &deptID,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(u.Email).To(Equal("staff@example.com"))
			Expect(u.IsActive).To(BeTrue())
			Expect(bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("password123"))).To(Succeed())
		})

		It("requires a department for staff roles", func() {
			_, err := service.Create(ctx, superAdmin, user.CreateUserDTO{Email: "e@example.com", Password: "password123", Role: "admin"})
			Expect(err).To(MatchError(internal.ErrDepartmentRequired))
		})

		It("rejects unknown departments", func() {
			missing := int64(404)
			_, err := service.Create(ctx, superAdmin, user.CreateUserDTO{Email: "e@example.com", Password: "password123", Role: "employee", DepartmentID: &missing})
			Expect(err).To(MatchError(internal.ErrUnknownDepartment))
		})

		It("stops admins from minting super admins", func() {
			_, err := service.Create(ctx, admin, user.CreateUserDTO{Email: "boss@example.com", Password: "password123", Role: "super_admin"})
			Expect(err).To(MatchError(internal.ErrRoleEscalation))
		})

		It("rejects unknown roles and duplicate emails", func() {
			_, err := service.Create(ctx, superAdmin, user.CreateUserDTO{Email: "x@example.com", Password: "password123", Role: "janitor"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))

			_, err = service.Create(ctx, superAdmin, user.CreateUserDTO{Email: "admin@example.com", Password: "password123", Role: "user"})
			Expect(err).To(MatchError(internal.ErrDuplicateEmail))
		})
	})

	Describe("UpdateRole", func() {
		var student *user.User

		BeforeEach(func() {
			var err error
			student, err = service.Create(ctx, superAdmin, user.CreateUserDTO{Email: "student@example.com", Password: "password123", Role: "user"})
			Expect(err).NotTo(HaveOccurred())
		})

		It("promotes a submitter into a department", func() {
			u, err := service.UpdateRole(ctx, admin, student.ID, user.UpdateRoleDTO{Role: "employee", DepartmentID: &deptID})
			Expect(err).NotTo(HaveOccurred())
			Expect(u.Role).To(Equal(role.Employee))
			Expect(*u.DepartmentID).To(Equal(deptID))
		})

		It("needs a department to promote into staff", func() {
			_, err := service.UpdateRole(ctx, admin, student.ID, user.UpdateRoleDTO{Role: "employee"})
			Expect(err).To(MatchError(internal.ErrDepartmentRequired))
		})

		It("does not let admins touch super admins", func() {
			_, err := service.UpdateRole(ctx, admin, superAdmin.ID, user.UpdateRoleDTO{Role: "user"})
			Expect(err).To(MatchError(internal.ErrPermissionDenied))
		})

		It("reports unknown users", func() {
			_, err := service.UpdateRole(ctx, superAdmin, 999, user.UpdateRoleDTO{Role: "user"})
			Expect(err).To(MatchError(internal.ErrUserNotFound))
		})
	})

	Describe("UpdateRole of an employee holding grievances", func() {
		var (
			employee    *user.User
			open, done  *grievanceDatamodel.Grievance
			otherDeptID int64
			submitterID int64
		)

		file := func(ticket, status string) *grievanceDatamodel.Grievance {
			assignee := employee.ID
			g := &grievanceDatamodel.Grievance{
				TicketID:     ticket,
				UserID:       submitterID,
				DepartmentID: deptID,
				Content:      "projector broken",
				AssignedTo:   &assignee,
				Status:       status,
			}
			Expect(db.Create(g).Error).To(Succeed())
			return g
		}

		reload := func(g *grievanceDatamodel.Grievance) *grievanceDatamodel.Grievance {
			var out grievanceDatamodel.Grievance
			Expect(db.First(&out, g.ID).Error).To(Succeed())
			return &out
		}

		history := func(g *grievanceDatamodel.Grievance) []grievanceDatamodel.StatusHistory {
			var rows []grievanceDatamodel.StatusHistory
			Expect(db.Where("grievance_id = ?", g.ID).Order("id ASC").Find(&rows).Error).To(Succeed())
			return rows
		}

		BeforeEach(func() {
			var err error
			employee, err = service.Create(ctx, admin, user.CreateUserDTO{Email: "staff@example.com", Password: "password123", Role: "employee", DepartmentID: &deptID})
			Expect(err).NotTo(HaveOccurred())
			submitter, err := dbtest.CreateUser(db, "student@example.com", role.User, nil)
			Expect(err).NotTo(HaveOccurred())
			submitterID = submitter.ID
			other, err := dbtest.CreateDepartment(db, "Hostel")
			Expect(err).NotTo(HaveOccurred())
			otherDeptID = other.ID

			open = file("t-open", grievance.StatusInProgress)
			done = file("t-done", grievance.StatusSolved)
		})

		It("returns open grievances to the queue when the employee is demoted", func() {
			u, err := service.UpdateRole(ctx, superAdmin, employee.ID, user.UpdateRoleDTO{Role: "user"})
			Expect(err).NotTo(HaveOccurred())
			Expect(u.Role).To(Equal(role.User))

			released := reload(open)
			Expect(released.AssignedTo).To(BeNil())
			Expect(released.Status).To(Equal(grievance.StatusPending))

			rows := history(open)
			Expect(rows).To(HaveLen(1))
			Expect(rows[0].Status).To(Equal(grievance.StatusPending))
			Expect(rows[0].ChangedByID).To(Equal(superAdmin.ID))
			Expect(rows[0].Notes).NotTo(BeNil())

			kept := reload(done)
			Expect(kept.Status).To(Equal(grievance.StatusSolved))
			Expect(*kept.AssignedTo).To(Equal(employee.ID))
			Expect(history(done)).To(BeEmpty())
		})

		It("returns open grievances when the employee is promoted to admin", func() {
			_, err := service.UpdateRole(ctx, superAdmin, employee.ID, user.UpdateRoleDTO{Role: "admin"})
			Expect(err).NotTo(HaveOccurred())
			Expect(reload(open).AssignedTo).To(BeNil())
		})

		It("returns open grievances when the employee moves department", func() {
			_, err := service.UpdateRole(ctx, superAdmin, employee.ID, user.UpdateRoleDTO{Role: "employee", DepartmentID: &otherDeptID})
			Expect(err).NotTo(HaveOccurred())
			Expect(reload(open).AssignedTo).To(BeNil())
			Expect(reload(open).Status).To(Equal(grievance.StatusPending))
		})

		It("keeps assignments when nothing about the employee changes", func() {
			_, err := service.UpdateRole(ctx, admin, employee.ID, user.UpdateRoleDTO{Role: "employee"})
			Expect(err).NotTo(HaveOccurred())
			Expect(*reload(open).AssignedTo).To(Equal(employee.ID))
			Expect(reload(open).Status).To(Equal(grievance.StatusInProgress))
			Expect(history(open)).To(BeEmpty())
		})
	})

	Describe("projections", func() {
		It("gives submitters the limited view of other accounts", func() {
			s, err := service.Create(ctx, superAdmin, user.CreateUserDTO{Email: "student@example.com", Password: "password123", Role: "user"})
			Expect(err).NotTo(HaveOccurred())
			caller := &auth.Actor{ID: s.ID, Role: role.User, IsActive: true}

			other, err := service.Get(ctx, caller, admin.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(other).To(BeAssignableToTypeOf(user.Limited{}))

			self, err := service.Get(ctx, caller, s.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(self).To(BeAssignableToTypeOf(user.Full{}))
		})

		It("lists with filters and full views for staff", func() {
			params := pagination.Default()
			page, err := service.List(ctx, admin, user.Filter{Role: "admin"}, params)
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Total).To(Equal(int64(1)))
			Expect(page.Items[0]).To(BeAssignableToTypeOf(user.Full{}))

			page, err = service.List(ctx, admin, user.Filter{DepartmentID: &deptID}, params)
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Total).To(Equal(int64(1)))

			_, err = service.List(ctx, admin, user.Filter{Role: "wizard"}, params)
			Expect(err).To(HaveOccurred())
		})
	})
})
