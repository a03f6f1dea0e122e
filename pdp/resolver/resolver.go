// pdp/resolver/resolver.go
package resolver

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	logger "github.com/arbiterhq/arbiter/logging"
	"github.com/arbiterhq/arbiter/model"
	pdp_model "github.com/arbiterhq/arbiter/pdp/model"
)

// SubjectStore looks up the stored subject record for a requester.
type SubjectStore interface {
	GetSubject(ctx context.Context, subjectID string) (*model.Subject, error)
}

// ResourceDefinitionStore looks up the definition for a resource type.
type ResourceDefinitionStore interface {
	GetResourceDefinition(ctx context.Context, resourceType string) (*model.ResourceDefinition, error)
}

// actionTypes classifies action names. Compound names like approve_department
// fall back to their leading token; anything unknown classifies as read.
var actionTypes = map[string]string{
	"read":    "read",
	"view":    "read",
	"list":    "read",
	"create":  "write",
	"update":  "write",
	"edit":    "write",
	"write":   "write",
	"delete":  "write",
	"approve": "approve",
	"reject":  "approve",
	"submit":  "submit",
	"export":  "export",
	"import":  "import",
}

// actionRiskLevels assigns a risk level per action name; unknown names are
// medium risk.
var actionRiskLevels = map[string]string{
	"read":    "low",
	"view":    "low",
	"list":    "low",
	"delete":  "high",
	"approve": "high",
	"reject":  "high",
	"export":  "high",
	"import":  "high",
}

var approvalRequiredActions = map[string]bool{
	"approve": true, "reject": true, "delete": true, "import": true,
}

var auditRequiredActions = map[string]bool{
	"approve": true, "reject": true, "delete": true, "create": true,
	"update": true, "export": true, "import": true,
}

// Options tunes derived environment attributes.
type Options struct {
	// BusinessHoursStart/End bound environment.isBusinessHours as the local
	// hour interval [Start, End).
	BusinessHoursStart int
	BusinessHoursEnd   int
	// Clock supplies "now" for requests without an explicit timestamp;
	// defaults to time.Now.
	Clock func() time.Time
}

// Resolver builds the per-request attribute context. The four namespaces
// have no data dependency on each other and are resolved concurrently; a
// failed lookup degrades its namespace to absent rather than failing the
// request, so a missing resource record can still produce a correct deny.
type Resolver struct {
	subjects  SubjectStore
	resources ResourceDefinitionStore
	opts      Options
}

func New(subjects SubjectStore, resources ResourceDefinitionStore, opts Options) *Resolver {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.BusinessHoursStart == 0 && opts.BusinessHoursEnd == 0 {
		opts.BusinessHoursStart = 8
		opts.BusinessHoursEnd = 17
	}
	return &Resolver{subjects: subjects, resources: resources, opts: opts}
}

// Resolve produces the attribute context for a request. It never fails:
// unknown attributes stay absent and conditions referencing them simply do
// not match.
func (r *Resolver) Resolve(ctx context.Context, req *pdp_model.EvaluationRequest) *model.AttributeContext {
	var subject, resource, environment, action map[string]model.TypedValue

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		subject = r.resolveSubject(gctx, req)
		return nil
	})
	g.Go(func() error {
		resource = r.resolveResource(gctx, req)
		return nil
	})
	g.Go(func() error {
		environment = r.resolveEnvironment(req)
		return nil
	})
	g.Go(func() error {
		action = r.resolveAction(req)
		return nil
	})
	_ = g.Wait()

	attrs := model.NewAttributeContext()
	for _, ns := range []map[string]model.TypedValue{subject, resource, environment, action} {
		for path, value := range ns {
			attrs.Set(path, value)
		}
	}
	return attrs
}

func (r *Resolver) resolveSubject(ctx context.Context, req *pdp_model.EvaluationRequest) map[string]model.TypedValue {
	out := make(map[string]model.TypedValue)
	if req.SubjectID == "" {
		return out
	}
	out["subject.id"] = model.StringValue(req.SubjectID)

	subject, err := r.subjects.GetSubject(ctx, req.SubjectID)
	if err != nil || subject == nil {
		logger.Warn("Subject lookup failed, namespace degraded to absent",
			zap.String("subjectID", req.SubjectID), zap.Error(err))
		return out
	}

	if primary, ok := subject.PrimaryRole(); ok {
		out["subject.role.name"] = model.StringValue(primary.RoleName)
	}
	if len(subject.RoleAssignments) > 0 {
		names := make([]string, len(subject.RoleAssignments))
		for i, ra := range subject.RoleAssignments {
			names[i] = ra.RoleName
		}
		out["subject.roles"] = model.StringArrayValue(names)
	}
	if subject.DepartmentID != "" {
		out["subject.department.id"] = model.StringValue(subject.DepartmentID)
	}
	if subject.Location != "" {
		out["subject.location"] = model.StringValue(subject.Location)
	}
	if subject.ClearanceLevel != "" {
		out["subject.clearanceLevel"] = model.StringValue(subject.ClearanceLevel)
	}
	if subject.ApprovalLimit != nil {
		out["subject.approvalLimit.amount"] = model.NumberValue(subject.ApprovalLimit.Amount)
		if subject.ApprovalLimit.Currency != "" {
			out["subject.approvalLimit.currency"] = model.StringValue(subject.ApprovalLimit.Currency)
		}
	}

	// Computed attributes.
	status := "suspended"
	if subject.Active {
		status = "active"
	}
	out["subject.accountStatus"] = model.StringValue(status)
	out["subject.tenureYears"] = model.NumberValue(float64(wholeYearsSince(subject.CreatedAt, r.now(req))))
	// On-duty is always true until a shift system is wired in.
	out["subject.onDuty"] = model.BoolValue(true)

	for key, value := range subject.Attributes {
		setNested(out, "subject."+key, value)
	}
	return out
}

func (r *Resolver) resolveResource(ctx context.Context, req *pdp_model.EvaluationRequest) map[string]model.TypedValue {
	out := make(map[string]model.TypedValue)
	if req.ResourceType == "" {
		return out
	}
	out["resource.type"] = model.StringValue(req.ResourceType)
	if req.ResourceID != "" {
		out["resource.id"] = model.StringValue(req.ResourceID)
	}

	def, err := r.resources.GetResourceDefinition(ctx, req.ResourceType)
	if err != nil {
		logger.Warn("Resource definition lookup failed, namespace degraded to absent",
			zap.String("resourceType", req.ResourceType), zap.Error(err))
	} else if def != nil {
		if def.Category != "" {
			out["resource.category"] = model.StringValue(def.Category)
		}
		out["resource.classification"] = model.StringValue(def.EffectiveClassification())
		for key, value := range def.Attributes {
			setNested(out, "resource."+key, value)
		}
	}

	// Request-supplied descriptor attributes override definition defaults.
	for key, value := range req.ResourceAttributes {
		setNested(out, "resource."+key, value)
	}
	return out
}

func (r *Resolver) resolveEnvironment(req *pdp_model.EvaluationRequest) map[string]model.TypedValue {
	now := r.now(req)
	out := map[string]model.TypedValue{
		"environment.timestamp":       model.DateValue(now),
		"environment.dayOfWeek":       model.StringValue(now.Weekday().String()),
		"environment.isBusinessHours": model.BoolValue(r.isBusinessHours(now)),
		"environment.isHoliday":       model.BoolValue(false),
		"environment.threatLevel":     model.StringValue("low"),
	}
	for key, value := range req.EnvironmentContext {
		setNested(out, "environment."+key, value)
	}
	return out
}

func (r *Resolver) resolveAction(req *pdp_model.EvaluationRequest) map[string]model.TypedValue {
	out := make(map[string]model.TypedValue)
	if req.ActionType == "" {
		return out
	}
	name := req.ActionType
	token := actionToken(name)

	actionType := "read"
	if t, ok := actionTypes[name]; ok {
		actionType = t
	} else if t, ok := actionTypes[token]; ok {
		actionType = t
	}

	risk := "medium"
	if l, ok := actionRiskLevels[name]; ok {
		risk = l
	} else if l, ok := actionRiskLevels[token]; ok {
		risk = l
	}

	out["action.name"] = model.StringValue(name)
	out["action.type"] = model.StringValue(actionType)
	out["action.riskLevel"] = model.StringValue(risk)
	out["action.requiresApproval"] = model.BoolValue(approvalRequiredActions[name] || approvalRequiredActions[token])
	out["action.auditRequired"] = model.BoolValue(auditRequiredActions[name] || auditRequiredActions[token])
	return out
}

// now returns the evaluation instant: the request timestamp when the caller
// supplied one, the clock otherwise. Time-derived attributes follow the
// instant the request claims, not the instant it is processed.
func (r *Resolver) now(req *pdp_model.EvaluationRequest) time.Time {
	if !req.Timestamp.IsZero() {
		return req.Timestamp
	}
	return r.opts.Clock()
}

// isBusinessHours reports whether the local hour falls in [start, end).
func (r *Resolver) isBusinessHours(now time.Time) bool {
	hour := now.Hour()
	return hour >= r.opts.BusinessHoursStart && hour < r.opts.BusinessHoursEnd
}

func wholeYearsSince(created, now time.Time) int {
	if created.IsZero() || created.After(now) {
		return 0
	}
	years := now.Year() - created.Year()
	anniversary := created.AddDate(years, 0, 0)
	if anniversary.After(now) {
		years--
	}
	return years
}

// setNested stores value under prefix and additionally flattens nested maps,
// so conditions can address leaves like resource.totalValue.amount directly.
func setNested(out map[string]model.TypedValue, prefix string, value interface{}) {
	out[prefix] = model.FromAny(value)
	if m, ok := value.(map[string]interface{}); ok {
		for k, v := range m {
			setNested(out, prefix+"."+k, v)
		}
	}
}

func actionToken(name string) string {
	if i := strings.IndexByte(name, '_'); i > 0 {
		return name[:i]
	}
	return name
}
