// service/services.go
package service

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/spf13/viper"

	"github.com/arbiterhq/arbiter/audit"
	"github.com/arbiterhq/arbiter/builder"
	"github.com/arbiterhq/arbiter/catalog"
	"github.com/arbiterhq/arbiter/dao"
	"github.com/arbiterhq/arbiter/model"
	"github.com/arbiterhq/arbiter/pdp/engine"
	"github.com/arbiterhq/arbiter/pdp/resolver"
	"github.com/arbiterhq/arbiter/util"
)

type Services struct {
	Policy   IPolicyService
	Decision IDecisionService
	Catalog  *catalog.Catalog
	Subjects *dao.SubjectDAO
	Resource *dao.ResourceTypeDAO
}

func InitializeServices(
	driver neo4j.Driver,
	auditService audit.Service,
	cacheService *util.CacheService,
	notificationSvc *util.NotificationService,
	eventBus *util.EventBus,
) (*Services, error) {
	policyDAO := dao.NewPolicyDAO(driver, auditService)
	subjectDAO := dao.NewSubjectDAO(driver)
	resourceTypeDAO := dao.NewResourceTypeDAO(driver)

	attributeCatalog := catalog.New()
	validator := builder.NewValidator(attributeCatalog)

	attrResolver := resolver.New(subjectDAO, resourceTypeDAO, resolver.Options{
		BusinessHoursStart: viper.GetInt("pdp.businessHoursStart"),
		BusinessHoursEnd:   viper.GetInt("pdp.businessHoursEnd"),
	})
	evaluator := engine.NewPolicyEvaluator(
		model.CombiningAlgorithm(viper.GetString("pdp.combiningAlgorithm")))

	services := &Services{
		Policy: NewPolicyService(policyDAO, validator, cacheService, notificationSvc, eventBus),
		Decision: NewDecisionService(
			policyDAO,
			attrResolver,
			evaluator,
			cacheService,
			auditService,
			notificationSvc,
			viper.GetDuration("pdp.decisionCacheTTL"),
			viper.GetDuration("pdp.evaluationTimeout"),
		),
		Catalog:  attributeCatalog,
		Subjects: subjectDAO,
		Resource: resourceTypeDAO,
	}

	return services, nil
}
