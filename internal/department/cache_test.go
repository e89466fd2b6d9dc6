package department_test

import (
	"time"

	"github.com/frahmantamala/grievance-management/internal/department"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Cache", func() {
	It("stores copies", func() {
		c := department.NewCache(4, time.Minute)
		d := &department.Department{ID: 1, Name: "Hostel"}
		c.Set(d)
		d.Name = "changed"

		got, ok := c.Get(1)
		Expect(ok).To(BeTrue())
		Expect(got.Name).To(Equal("Hostel"))
	})

	It("evicts the least recently used entry", func() {
		c := department.NewCache(2, time.Minute)
		c.Set(&department.Department{ID: 1})
		c.Set(&department.Department{ID: 2})
		_, _ = c.Get(1)
		c.Set(&department.Department{ID: 3})

		_, ok := c.Get(2)
		Expect(ok).To(BeFalse())
		_, ok = c.Get(1)
		Expect(ok).To(BeTrue())
	})

	It("expires entries after the ttl", func() {
		c := department.NewCache(2, 20*time.Millisecond)
		c.Set(&department.Department{ID: 1})

		Eventually(func() bool {
			_, ok := c.Get(1)
			return ok
		}).WithTimeout(time.Second).Should(BeFalse())
	})

	It("forgets deleted and purged entries", func() {
		c := department.NewCache(4, time.Minute)
		c.Set(&department.Department{ID: 1})
		c.Set(&department.Department{ID: 2})

		c.Delete(1)
		_, ok := c.Get(1)
		Expect(ok).To(BeFalse())

		c.Purge()
		_, ok = c.Get(2)
		Expect(ok).To(BeFalse())
	})
})
