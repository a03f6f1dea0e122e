// controller/controllers.go
package controller

import "github.com/arbiterhq/arbiter/service"

type Controllers struct {
	Policy       *PolicyController
	Decision     *DecisionController
	Catalog      *CatalogController
	Subject      *SubjectController
	ResourceType *ResourceTypeController
}

func InitializeControllers(services *service.Services) *Controllers {
	return &Controllers{
		Policy:       NewPolicyController(services.Policy),
		Decision:     NewDecisionController(services.Decision),
		Catalog:      NewCatalogController(services.Catalog),
		Subject:      NewSubjectController(services.Subjects),
		ResourceType: NewResourceTypeController(services.Resource),
	}
}
