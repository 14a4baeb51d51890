package v1_test

import (
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	v1 "github.com/custom-policies/policy-console/api/v1"
)

var _ = Describe("Page", func() {
	Describe("QueryValues", func() {
		It("renders offset and limit from the 1-based index", func() {
			values := v1.Page{Index: 3, Size: 20}.QueryValues()

			Expect(values.Get("offset")).To(Equal("40"))
			Expect(values.Get("limit")).To(Equal("20"))
		})

		It("renders filter and sort parameters", func() {
			page := v1.Page{
				Index: 1,
				Size:  50,
				Filter: &v1.Filter{Elements: []v1.FilterElement{
					{Column: "name", Operator: v1.OperatorILike, Value: "cpu"},
				}},
				Sort: &v1.Sort{Column: "mtime", Direction: v1.SortDescending},
			}

			values := page.QueryValues()

			Expect(values.Get("filter[name]")).To(Equal("cpu"))
			Expect(values.Get("filter:op[name]")).To(Equal("ilike"))
			Expect(values.Get("sortColumn")).To(Equal("mtime"))
			Expect(values.Get("sortDirection")).To(Equal("desc"))
		})
	})

	Describe("PageFromRequest", func() {
		It("defaults when no parameters are supplied", func() {
			r := httptest.NewRequest("GET", "/policies", nil)

			page, err := v1.PageFromRequest(r)

			Expect(err).NotTo(HaveOccurred())
			Expect(page).To(Equal(v1.DefaultPage()))
		})

		It("inverts QueryValues", func() {
			original := v1.Page{
				Index: 2,
				Size:  25,
				Filter: &v1.Filter{Elements: []v1.FilterElement{
					{Column: "is_enabled", Operator: v1.OperatorBoolean, Value: "true"},
					{Column: "name", Operator: v1.OperatorLike, Value: "disk"},
				}},
				Sort: &v1.Sort{Column: "name", Direction: v1.SortAscending},
			}
			r := httptest.NewRequest("GET", "/policies?"+original.QueryValues().Encode(), nil)

			page, err := v1.PageFromRequest(r)

			Expect(err).NotTo(HaveOccurred())
			Expect(page).To(Equal(original))
		})

		It("rejects unknown filter columns", func() {
			r := httptest.NewRequest("GET", "/policies?filter[secret]=x", nil)

			_, err := v1.PageFromRequest(r)

			Expect(err).To(HaveOccurred())
		})

		It("rejects unknown sort columns", func() {
			r := httptest.NewRequest("GET", "/policies?sortColumn=secret", nil)

			_, err := v1.PageFromRequest(r)

			Expect(err).To(HaveOccurred())
		})

		It("rejects an invalid sort direction", func() {
			r := httptest.NewRequest("GET", "/policies?sortColumn=name&sortDirection=sideways", nil)

			_, err := v1.PageFromRequest(r)

			Expect(err).To(HaveOccurred())
		})

		It("defaults the sort direction to ascending", func() {
			r := httptest.NewRequest("GET", "/policies?sortColumn=name", nil)

			page, err := v1.PageFromRequest(r)

			Expect(err).NotTo(HaveOccurred())
			Expect(page.Sort.Direction).To(Equal(v1.SortAscending))
		})

		It("rejects a negative or malformed limit", func() {
			r := httptest.NewRequest("GET", "/policies?limit=-1", nil)
			_, err := v1.PageFromRequest(r)
			Expect(err).To(HaveOccurred())

			r = httptest.NewRequest("GET", "/policies?limit=ten", nil)
			_, err = v1.PageFromRequest(r)
			Expect(err).To(HaveOccurred())
		})
	})
})
