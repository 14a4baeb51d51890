package service_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	v1 "github.com/custom-policies/policy-console/api/v1"
	"github.com/custom-policies/policy-console/internal/service"
	"github.com/custom-policies/policy-console/internal/store"
	"github.com/custom-policies/policy-console/internal/store/model"
)

const testAccount = "0000001"

func validRequest(name string) v1.ServerPolicyRequest {
	return v1.ServerPolicyRequest{
		Name:       name,
		Conditions: `facts.arch = "x86_64"`,
		IsEnabled:  true,
		Actions:    "email;webhook https://example.com/hook",
	}
}

var _ = Describe("PolicyService", func() {
	var (
		db            *gorm.DB
		dataStore     store.Store
		policyService service.PolicyService
		ctx           context.Context
	)

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(db.AutoMigrate(&model.Policy{}, &model.Trigger{})).To(Succeed())

		dataStore = store.NewStore(db)
		policyService = service.NewPolicyService(dataStore)
		ctx = context.Background()
	})

	AfterEach(func() {
		Expect(dataStore.Close()).To(Succeed())
	})

	expectServiceError := func(err error, errType service.ErrorType) *service.ServiceError {
		var serviceErr *service.ServiceError
		ExpectWithOffset(1, err).To(HaveOccurred())
		ExpectWithOffset(1, errors.As(err, &serviceErr)).To(BeTrue(), "expected *ServiceError, got %T", err)
		ExpectWithOffset(1, serviceErr.Type).To(Equal(errType))
		return serviceErr
	}

	Describe("CreatePolicy", func() {
		It("persists a valid policy and returns the stored shape", func() {
			created, err := policyService.CreatePolicy(ctx, testAccount, validRequest("High load"))

			Expect(err).NotTo(HaveOccurred())
			Expect(created.ID).NotTo(BeNil())
			Expect(created.Name).To(Equal("High load"))
			Expect(created.Actions).To(Equal("email;webhook https://example.com/hook"))
			Expect(created.Ctime).NotTo(BeNil())
			Expect(created.Mtime).NotTo(BeNil())
			Expect(created.LastEvaluation).To(BeNil())
		})

		It("rejects a blank name with a field error", func() {
			request := validRequest("  ")
			serviceErr := expectServiceError(
				mustFail(policyService.CreatePolicy(ctx, testAccount, request)),
				service.ErrorTypeInvalidArgument,
			)

			Expect(serviceErr.Fields).To(HaveKey("name"))
		})

		It("rejects duplicate webhook actions", func() {
			request := validRequest("High load")
			request.Actions = "webhook https://a.example.com;webhook https://b.example.com"

			serviceErr := expectServiceError(
				mustFail(policyService.CreatePolicy(ctx, testAccount, request)),
				service.ErrorTypeInvalidArgument,
			)

			Expect(serviceErr.Fields).To(HaveKey("actions"))
		})

		It("rejects an unparseable actions string", func() {
			request := validRequest("High load")
			request.Actions = "pager 555-0100"

			expectServiceError(
				mustFail(policyService.CreatePolicy(ctx, testAccount, request)),
				service.ErrorTypeInvalidArgument,
			)
		})

		It("rejects a malformed condition", func() {
			request := validRequest("High load")
			request.Conditions = `facts.arch = "x86_64`

			expectServiceError(
				mustFail(policyService.CreatePolicy(ctx, testAccount, request)),
				service.ErrorTypeInvalidArgument,
			)
		})

		It("rejects a name already taken in the account", func() {
			_, err := policyService.CreatePolicy(ctx, testAccount, validRequest("High load"))
			Expect(err).NotTo(HaveOccurred())

			expectServiceError(
				mustFail(policyService.CreatePolicy(ctx, testAccount, validRequest("High load"))),
				service.ErrorTypeAlreadyExists,
			)
		})
	})

	Describe("GetPolicy", func() {
		It("returns NOT_FOUND for an unknown ID", func() {
			expectServiceError(
				mustFail(policyService.GetPolicy(ctx, testAccount, "e3c37a8f-0f93-4b0f-9b3e-000000000000")),
				service.ErrorTypeNotFound,
			)
		})

		It("returns a stored policy", func() {
			created, err := policyService.CreatePolicy(ctx, testAccount, validRequest("High load"))
			Expect(err).NotTo(HaveOccurred())

			fetched, err := policyService.GetPolicy(ctx, testAccount, created.ID.String())

			Expect(err).NotTo(HaveOccurred())
			Expect(fetched.Name).To(Equal("High load"))
		})
	})

	Describe("UpdatePolicy", func() {
		It("replaces mutable fields", func() {
			created, err := policyService.CreatePolicy(ctx, testAccount, validRequest("High load"))
			Expect(err).NotTo(HaveOccurred())

			request := validRequest("High load")
			request.Description = "watch the CPU"
			request.IsEnabled = false
			request.Actions = "email"
			updated, err := policyService.UpdatePolicy(ctx, testAccount, created.ID.String(), request)

			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Description).To(Equal("watch the CPU"))
			Expect(updated.IsEnabled).To(BeFalse())
			Expect(updated.Actions).To(Equal("email"))
		})

		It("validates before touching the store", func() {
			created, err := policyService.CreatePolicy(ctx, testAccount, validRequest("High load"))
			Expect(err).NotTo(HaveOccurred())

			request := validRequest("")
			expectServiceError(
				mustFail(policyService.UpdatePolicy(ctx, testAccount, created.ID.String(), request)),
				service.ErrorTypeInvalidArgument,
			)
		})

		It("returns NOT_FOUND for an unknown ID", func() {
			expectServiceError(
				mustFail(policyService.UpdatePolicy(ctx, testAccount, "e3c37a8f-0f93-4b0f-9b3e-000000000000", validRequest("x"))),
				service.ErrorTypeNotFound,
			)
		})
	})

	Describe("ListPolicies", func() {
		BeforeEach(func() {
			for _, name := range []string{"alpha", "beta", "gamma"} {
				_, err := policyService.CreatePolicy(ctx, testAccount, validRequest(name))
				Expect(err).NotTo(HaveOccurred())
			}
		})

		It("returns a page plus the total count", func() {
			response, total, err := policyService.ListPolicies(ctx, testAccount, v1.Page{Index: 1, Size: 2})

			Expect(err).NotTo(HaveOccurred())
			Expect(response.Data).To(HaveLen(2))
			Expect(total).To(Equal(int64(3)))
		})

		It("applies sorting", func() {
			page := v1.Page{
				Index: 1,
				Size:  10,
				Sort:  &v1.Sort{Column: "name", Direction: v1.SortDescending},
			}
			response, _, err := policyService.ListPolicies(ctx, testAccount, page)

			Expect(err).NotTo(HaveOccurred())
			Expect(response.Data[0].Name).To(Equal("gamma"))
		})

		It("applies filters", func() {
			page := v1.Page{
				Index: 1,
				Size:  10,
				Filter: &v1.Filter{Elements: []v1.FilterElement{
					{Column: "name", Operator: v1.OperatorEqual, Value: "beta"},
				}},
			}
			response, total, err := policyService.ListPolicies(ctx, testAccount, page)

			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(1)))
			Expect(response.Data[0].Name).To(Equal("beta"))
		})

		It("rejects a filter on an unknown column", func() {
			page := v1.Page{
				Index: 1,
				Size:  10,
				Filter: &v1.Filter{Elements: []v1.FilterElement{
					{Column: "account_id", Operator: v1.OperatorEqual, Value: "x"},
				}},
			}
			_, _, err := policyService.ListPolicies(ctx, testAccount, page)

			expectServiceError(err, service.ErrorTypeInvalidArgument)
		})

		It("rejects an invalid page", func() {
			_, _, err := policyService.ListPolicies(ctx, testAccount, v1.Page{Index: 0, Size: 0})

			expectServiceError(err, service.ErrorTypeInvalidArgument)
		})
	})

	Describe("DeletePolicies", func() {
		It("deletes in bulk and reports the removed IDs", func() {
			first, err := policyService.CreatePolicy(ctx, testAccount, validRequest("first"))
			Expect(err).NotTo(HaveOccurred())
			second, err := policyService.CreatePolicy(ctx, testAccount, validRequest("second"))
			Expect(err).NotTo(HaveOccurred())

			deleted, err := policyService.DeletePolicies(ctx, testAccount,
				[]string{first.ID.String(), second.ID.String()})

			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(ConsistOf(first.ID.String(), second.ID.String()))
		})
	})

	Describe("SetEnabled", func() {
		It("flips the flag in bulk", func() {
			created, err := policyService.CreatePolicy(ctx, testAccount, validRequest("High load"))
			Expect(err).NotTo(HaveOccurred())

			Expect(policyService.SetEnabled(ctx, testAccount, []string{created.ID.String()}, false)).To(Succeed())

			fetched, err := policyService.GetPolicy(ctx, testAccount, created.ID.String())
			Expect(err).NotTo(HaveOccurred())
			Expect(fetched.IsEnabled).To(BeFalse())
		})
	})

	Describe("ValidateCondition", func() {
		It("accepts a valid condition", func() {
			Expect(policyService.ValidateCondition(ctx, validRequest("x"))).To(Succeed())
		})

		It("rejects a blank condition", func() {
			request := validRequest("x")
			request.Conditions = " "

			expectServiceError(policyService.ValidateCondition(ctx, request), service.ErrorTypeInvalidArgument)
		})

		It("rejects unbalanced parentheses", func() {
			request := validRequest("x")
			request.Conditions = "(facts.cores > 2"

			expectServiceError(policyService.ValidateCondition(ctx, request), service.ErrorTypeInvalidArgument)
		})
	})

	Describe("ValidateName", func() {
		It("accepts a fresh name", func() {
			Expect(policyService.ValidateName(ctx, testAccount, "fresh", "")).To(Succeed())
		})

		It("rejects a blank name", func() {
			expectServiceError(policyService.ValidateName(ctx, testAccount, " ", ""), service.ErrorTypeInvalidArgument)
		})

		It("rejects a taken name", func() {
			_, err := policyService.CreatePolicy(ctx, testAccount, validRequest("High load"))
			Expect(err).NotTo(HaveOccurred())

			expectServiceError(policyService.ValidateName(ctx, testAccount, "High load", ""), service.ErrorTypeAlreadyExists)
		})

		It("allows the current name when editing", func() {
			created, err := policyService.CreatePolicy(ctx, testAccount, validRequest("High load"))
			Expect(err).NotTo(HaveOccurred())

			Expect(policyService.ValidateName(ctx, testAccount, "High load", created.ID.String())).To(Succeed())
		})
	})

	Describe("Triggers", func() {
		It("records a firing and stamps last evaluation", func() {
			created, err := policyService.CreatePolicy(ctx, testAccount, validRequest("High load"))
			Expect(err).NotTo(HaveOccurred())

			trigger, err := policyService.RecordTrigger(ctx, testAccount, created.ID.String(), "host-id", "host-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(trigger.HostName).To(Equal("host-1"))

			fetched, err := policyService.GetPolicy(ctx, testAccount, created.ID.String())
			Expect(err).NotTo(HaveOccurred())
			Expect(fetched.LastEvaluation).NotTo(BeNil())

			history, total, err := policyService.ListTriggers(ctx, testAccount, created.ID.String(), v1.Page{Index: 1, Size: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(1)))
			Expect(history.Data[0].HostName).To(Equal("host-1"))
		})

		It("returns NOT_FOUND for another account's policy", func() {
			created, err := policyService.CreatePolicy(ctx, testAccount, validRequest("High load"))
			Expect(err).NotTo(HaveOccurred())

			_, _, err = policyService.ListTriggers(ctx, "0000002", created.ID.String(), v1.Page{Index: 1, Size: 10})

			expectServiceError(err, service.ErrorTypeNotFound)
		})
	})
})
