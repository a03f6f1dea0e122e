// dao/policy_dao.go
package dao

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/arbiterhq/arbiter/audit"
	arbiter_errors "github.com/arbiterhq/arbiter/errors"
	logger "github.com/arbiterhq/arbiter/logging"
	"github.com/arbiterhq/arbiter/model"
)

type PolicyDAO struct {
	Driver       neo4j.Driver
	AuditService audit.Service
}

func NewPolicyDAO(driver neo4j.Driver, auditService audit.Service) *PolicyDAO {
	dao := &PolicyDAO{Driver: driver, AuditService: auditService}
	ctx := context.Background()
	if err := dao.EnsureUniqueConstraints(ctx); err != nil {
		logger.Fatal("Failed to ensure unique constraints", zap.Error(err))
	}
	return dao
}

// EnsureUniqueConstraints ensures policy id and name are unique in the store.
func (dao *PolicyDAO) EnsureUniqueConstraints(ctx context.Context) error {
	logger.Info("Ensuring unique constraints on Policy id and name")
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer func() {
		if err := session.Close(); err != nil {
			logger.Error("Failed to close Neo4j session", zap.Error(err))
		}
	}()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		queries := []string{
			`CREATE CONSTRAINT unique_policy_id IF NOT EXISTS
			FOR (p:POLICY) REQUIRE p.id IS UNIQUE`,
			`CREATE CONSTRAINT unique_policy_name IF NOT EXISTS
			FOR (p:POLICY) REQUIRE p.name IS UNIQUE`,
		}
		for _, query := range queries {
			if _, err := transaction.Run(query, nil); err != nil {
				logger.Error("Failed to create unique constraint", zap.Error(err))
				return nil, fmt.Errorf("failed to create unique constraint: %w", err)
			}
		}
		return nil, nil
	})
	if err != nil {
		logger.Error("Failed to ensure unique constraints on Policy", zap.Error(err))
		return err
	}

	logger.Info("Successfully ensured unique constraints on Policy")
	return nil
}

// CreatePolicy creates a new policy node in Neo4j
func (dao *PolicyDAO) CreatePolicy(ctx context.Context, policy model.Policy, userID string) (string, error) {
	start := time.Now()
	logger.Info("Creating new policy", zap.String("policyName", policy.Name))
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	if policy.ID == "" {
		policy.ID = uuid.New().String()
	}

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		// Reject id and name collisions before writing
		checkQuery := `
        MATCH (p:POLICY)
        WHERE p.id = $id OR p.name = $name
        RETURN p.id, p.name
        `
		checkResult, err := transaction.Run(checkQuery, map[string]interface{}{
			"id":   policy.ID,
			"name": policy.Name,
		})
		if err != nil {
			return nil, arbiter_errors.ErrDatabaseOperation
		}
		if checkResult.Next() {
			if existingName, _ := checkResult.Record().Get("p.name"); existingName == policy.Name {
				return nil, arbiter_errors.ErrDuplicatePolicyName
			}
			return nil, arbiter_errors.ErrPolicyConflict
		}

		createQuery := `
            MERGE (p:POLICY {id: $id})
            ON CREATE SET p += $props
            ON MATCH SET p += $props
            RETURN p.id as id
        `

		parameters := map[string]interface{}{
			"id":    policy.ID,
			"props": policyToProps(&policy, time.Now(), time.Now()),
		}
		createResult, err := transaction.Run(createQuery, parameters)
		if err != nil {
			return nil, arbiter_errors.ErrDatabaseOperation
		}
		if createResult.Next() {
			id, found := createResult.Record().Get("id")
			if !found {
				return nil, arbiter_errors.ErrInternalServer
			}
			return id, nil
		}
		return nil, arbiter_errors.ErrInternalServer
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to create policy",
			zap.Error(err),
			zap.String("policyName", policy.Name),
			zap.Duration("duration", duration))
		return "", err
	}

	policyID := fmt.Sprintf("%v", result)
	logger.Info("Policy created successfully",
		zap.String("policyID", policyID),
		zap.Duration("duration", duration))

	changeLog := audit.PolicyChangeLog{
		Timestamp:     time.Now(),
		UserID:        userID,
		Action:        "CREATE_POLICY",
		PolicyID:      policyID,
		PolicyName:    policy.Name,
		ChangeDetails: createChangeDetails(nil, &policy),
	}
	if err := dao.AuditService.LogPolicyChange(ctx, changeLog); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}
	return policyID, nil
}

// UpdatePolicy updates an existing policy in Neo4j
func (dao *PolicyDAO) UpdatePolicy(ctx context.Context, policy model.Policy, userID string) (*model.Policy, error) {
	start := time.Now()
	logger.Info("Updating policy", zap.String("policyID", policy.ID))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	var updatedPolicy *model.Policy
	oldPolicy, err := dao.GetPolicy(ctx, policy.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}

	_, err = session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
				MATCH (p:POLICY {id: $id})
				SET p += $props
				RETURN p
				`

		parameters := map[string]interface{}{
			"id":    policy.ID,
			"props": policyToProps(&policy, oldPolicy.CreatedAt, time.Now()),
		}
		result, err := transaction.Run(query, parameters)
		if err != nil {
			return nil, fmt.Errorf("failed to execute update query: %w", err)
		}
		if result.Next() {
			node := result.Record().Values[0].(neo4j.Node)
			updatedPolicy, _ = mapNodeToPolicy(node)
			return nil, nil
		}
		return nil, arbiter_errors.ErrPolicyNotFound
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to update policy",
			zap.Error(err),
			zap.String("policyID", policy.ID),
			zap.Duration("duration", duration))
		return nil, fmt.Errorf("failed to update policy: %w", err)
	}

	logger.Info("Policy updated successfully",
		zap.String("policyID", policy.ID),
		zap.Duration("duration", duration))

	changeLog := audit.PolicyChangeLog{
		Timestamp:     time.Now(),
		UserID:        userID,
		Action:        "UPDATE_POLICY",
		PolicyID:      policy.ID,
		PolicyName:    policy.Name,
		ChangeDetails: createChangeDetails(oldPolicy, updatedPolicy),
	}
	if err := dao.AuditService.LogPolicyChange(ctx, changeLog); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}

	return updatedPolicy, nil
}

// DeletePolicy deletes a policy from Neo4j
func (dao *PolicyDAO) DeletePolicy(ctx context.Context, policyID string, userID string) error {
	start := time.Now()
	logger.Info("Deleting policy", zap.String("policyID", policyID))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (p:POLICY {id: $id})
        DETACH DELETE p
        `
		result, err := transaction.Run(query, map[string]interface{}{"id": policyID})
		if err != nil {
			return nil, fmt.Errorf("failed to execute delete query: %w", err)
		}
		summary, err := result.Consume()
		if err != nil {
			return nil, fmt.Errorf("failed to consume delete result: %w", err)
		}
		if summary.Counters().NodesDeleted() == 0 {
			return nil, arbiter_errors.ErrPolicyNotFound
		}
		return nil, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to delete policy",
			zap.Error(err),
			zap.String("policyID", policyID),
			zap.Duration("duration", duration))
		return fmt.Errorf("failed to delete policy: %w", err)
	}

	logger.Info("Policy deleted successfully",
		zap.String("policyID", policyID),
		zap.Duration("duration", duration))

	changeLog := audit.PolicyChangeLog{
		Timestamp: time.Now(),
		UserID:    userID,
		Action:    "DELETE_POLICY",
		PolicyID:  policyID,
	}
	if err := dao.AuditService.LogPolicyChange(ctx, changeLog); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}

	return nil
}

// GetPolicy retrieves a policy from Neo4j by its ID
func (dao *PolicyDAO) GetPolicy(ctx context.Context, policyID string) (*model.Policy, error) {
	start := time.Now()
	logger.Info("Retrieving policy", zap.String("policyID", policyID))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
    MATCH (p:POLICY {id: $id})
    RETURN p
    `
	result, err := session.Run(query, map[string]interface{}{"id": policyID})
	if err != nil {
		logger.Error("Failed to execute get policy query",
			zap.Error(err),
			zap.String("policyID", policyID),
			zap.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to execute get policy query: %w", err)
	}

	if result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		policy, err := mapNodeToPolicy(node)
		if err != nil {
			logger.Error("Failed to map policy node to struct",
				zap.Error(err),
				zap.String("policyID", policyID),
				zap.Duration("duration", time.Since(start)))
			return nil, fmt.Errorf("failed to map policy node to struct: %w", err)
		}
		return policy, nil
	}

	logger.Warn("Policy not found",
		zap.String("policyID", policyID),
		zap.Duration("duration", time.Since(start)))
	return nil, arbiter_errors.ErrPolicyNotFound
}

// GetPolicyByName retrieves a policy from Neo4j by its unique name
func (dao *PolicyDAO) GetPolicyByName(ctx context.Context, name string) (*model.Policy, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
    MATCH (p:POLICY {name: $name})
    RETURN p
    `
	result, err := session.Run(query, map[string]interface{}{"name": name})
	if err != nil {
		return nil, fmt.Errorf("failed to execute get policy by name query: %w", err)
	}

	if result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		return mapNodeToPolicy(node)
	}
	return nil, arbiter_errors.ErrPolicyNotFound
}

// ListPolicies retrieves all policies from Neo4j with pagination
func (dao *PolicyDAO) ListPolicies(ctx context.Context, limit int, offset int) ([]*model.Policy, error) {
	start := time.Now()
	logger.Info("Listing policies", zap.Int("limit", limit), zap.Int("offset", offset))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
    MATCH (p:POLICY)
    RETURN p
    ORDER BY p.createdAt DESC
    SKIP $offset
    LIMIT $limit
    `
	result, err := session.Run(query, map[string]interface{}{
		"limit":  limit,
		"offset": offset,
	})
	if err != nil {
		logger.Error("Failed to execute list policies query",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to execute list policies query: %w", err)
	}

	var policies []*model.Policy
	for result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		policy, err := mapNodeToPolicy(node)
		if err != nil {
			logger.Error("Failed to map policy node to struct",
				zap.Error(err),
				zap.Duration("duration", time.Since(start)))
			return nil, fmt.Errorf("failed to map policy node to struct: %w", err)
		}
		policies = append(policies, policy)
	}

	logger.Info("Policies listed successfully",
		zap.Int("count", len(policies)),
		zap.Duration("duration", time.Since(start)))

	return policies, nil
}

// FindActivePolicies retrieves the full active policy set for evaluation.
func (dao *PolicyDAO) FindActivePolicies(ctx context.Context) ([]*model.Policy, error) {
	start := time.Now()

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
    MATCH (p:POLICY {status: $status})
    RETURN p
    ORDER BY p.priority DESC, p.name ASC
    `
	result, err := session.Run(query, map[string]interface{}{"status": string(model.StatusActive)})
	if err != nil {
		logger.Error("Failed to execute active policies query",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to execute active policies query: %w", err)
	}

	var policies []*model.Policy
	for result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		policy, err := mapNodeToPolicy(node)
		if err != nil {
			return nil, fmt.Errorf("failed to map policy node to struct: %w", err)
		}
		policies = append(policies, policy)
	}

	logger.Debug("Active policies loaded",
		zap.Int("count", len(policies)),
		zap.Duration("duration", time.Since(start)))

	return policies, nil
}

// SearchPolicies searches for policies based on given criteria
func (dao *PolicyDAO) SearchPolicies(ctx context.Context, criteria model.PolicySearchCriteria) ([]*model.Policy, error) {
	start := time.Now()
	logger.Info("Searching policies", zap.Any("criteria", criteria))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	var queryBuilder strings.Builder
	queryBuilder.WriteString("MATCH (p:POLICY) WHERE 1=1")

	params := make(map[string]interface{})

	if criteria.Name != "" {
		queryBuilder.WriteString(" AND p.name CONTAINS $name")
		params["name"] = criteria.Name
	}

	if criteria.Effect != "" {
		queryBuilder.WriteString(" AND p.effect = $effect")
		params["effect"] = string(criteria.Effect)
	}

	if criteria.Status != "" {
		queryBuilder.WriteString(" AND p.status = $status")
		params["status"] = string(criteria.Status)
	}

	if criteria.MinPriority > 0 {
		queryBuilder.WriteString(" AND p.priority >= $minPriority")
		params["minPriority"] = criteria.MinPriority
	}

	if criteria.MaxPriority > 0 {
		queryBuilder.WriteString(" AND p.priority <= $maxPriority")
		params["maxPriority"] = criteria.MaxPriority
	}

	if criteria.Tag != "" {
		queryBuilder.WriteString(" AND p.tags CONTAINS $tag")
		params["tag"] = fmt.Sprintf("%q", criteria.Tag)
	}

	if criteria.FromDate != nil {
		queryBuilder.WriteString(" AND p.createdAt >= $fromDate")
		params["fromDate"] = criteria.FromDate.Format(time.RFC3339)
	}

	if criteria.ToDate != nil {
		queryBuilder.WriteString(" AND p.createdAt <= $toDate")
		params["toDate"] = criteria.ToDate.Format(time.RFC3339)
	}

	queryBuilder.WriteString(" RETURN p ORDER BY p.createdAt DESC")

	if criteria.Offset > 0 {
		queryBuilder.WriteString(" SKIP $offset")
		params["offset"] = criteria.Offset
	}

	if criteria.Limit > 0 {
		queryBuilder.WriteString(" LIMIT $limit")
		params["limit"] = criteria.Limit
	}

	result, err := session.Run(queryBuilder.String(), params)
	if err != nil {
		logger.Error("Failed to execute search policies query",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to execute search policies query: %w", err)
	}

	var policies []*model.Policy
	for result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		policy, err := mapNodeToPolicy(node)
		if err != nil {
			logger.Error("Failed to map policy node to struct",
				zap.Error(err),
				zap.Duration("duration", time.Since(start)))
			return nil, fmt.Errorf("failed to map policy node to struct: %w", err)
		}
		policies = append(policies, policy)
	}

	logger.Info("Policies searched successfully",
		zap.Int("count", len(policies)),
		zap.Duration("duration", time.Since(start)))

	return policies, nil
}

// BulkUpdateStatus sets the status of many policies in one transaction.
func (dao *PolicyDAO) BulkUpdateStatus(ctx context.Context, policyIDs []string, status model.PolicyStatus, userID string) (int, error) {
	start := time.Now()
	logger.Info("Bulk updating policy status",
		zap.Int("count", len(policyIDs)),
		zap.String("status", string(status)))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (p:POLICY)
        WHERE p.id IN $ids
        SET p.status = $status, p.updatedAt = $updatedAt
        RETURN count(p) AS updated
        `
		res, err := transaction.Run(query, map[string]interface{}{
			"ids":       policyIDs,
			"status":    string(status),
			"updatedAt": time.Now().Format(time.RFC3339),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to execute bulk status query: %w", err)
		}
		if res.Next() {
			updated, _ := res.Record().Get("updated")
			return updated, nil
		}
		return int64(0), nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to bulk update policy status",
			zap.Error(err),
			zap.Duration("duration", duration))
		return 0, err
	}

	updated := int(result.(int64))
	logger.Info("Policy statuses updated",
		zap.Int("updated", updated),
		zap.Duration("duration", duration))

	details, _ := json.Marshal(map[string]interface{}{
		"policy_ids": policyIDs,
		"status":     status,
	})
	changeLog := audit.PolicyChangeLog{
		Timestamp:     time.Now(),
		UserID:        userID,
		Action:        "BULK_UPDATE_STATUS",
		ChangeDetails: details,
	}
	if err := dao.AuditService.LogPolicyChange(ctx, changeLog); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}

	return updated, nil
}

// policyToProps flattens a policy into node properties. Structured fields are
// stored as JSON strings because Neo4j properties cannot hold nested maps.
func policyToProps(policy *model.Policy, createdAt, updatedAt time.Time) map[string]interface{} {
	targetJSON, _ := json.Marshal(policy.Target)
	rulesJSON, _ := json.Marshal(policy.Rules)
	obligationsJSON, _ := json.Marshal(policy.Obligations)
	adviceJSON, _ := json.Marshal(policy.Advice)
	tagsJSON, _ := json.Marshal(policy.Tags)

	return map[string]interface{}{
		"name":               policy.Name,
		"description":        policy.Description,
		"effect":             string(policy.Effect),
		"priority":           policy.Priority,
		"status":             string(policy.Status),
		"combiningAlgorithm": string(policy.CombiningAlgorithm),
		"version":            policy.Version,
		"createdAt":          createdAt.Format(time.RFC3339),
		"updatedAt":          updatedAt.Format(time.RFC3339),
		"validFrom":          formatNullableTime(policy.ValidFrom),
		"validTo":            formatNullableTime(policy.ValidTo),
		"target":             string(targetJSON),
		"rules":              string(rulesJSON),
		"obligations":        string(obligationsJSON),
		"advice":             string(adviceJSON),
		"tags":               string(tagsJSON),
	}
}

// Helper function to create change details for audit log
func createChangeDetails(oldPolicy, newPolicy *model.Policy) json.RawMessage {
	changes := make(map[string]interface{})
	if oldPolicy == nil {
		changes["action"] = "created"
	} else if newPolicy == nil {
		changes["action"] = "deleted"
	} else {
		changes["action"] = "updated"
		if oldPolicy.Name != newPolicy.Name {
			changes["name"] = map[string]string{"old": oldPolicy.Name, "new": newPolicy.Name}
		}
		if oldPolicy.Status != newPolicy.Status {
			changes["status"] = map[string]string{"old": string(oldPolicy.Status), "new": string(newPolicy.Status)}
		}
		if oldPolicy.Priority != newPolicy.Priority {
			changes["priority"] = map[string]int{"old": oldPolicy.Priority, "new": newPolicy.Priority}
		}
	}
	changeDetails, _ := json.Marshal(changes)
	return changeDetails
}

// Helper function to map Neo4j Node to Policy struct
func mapNodeToPolicy(node neo4j.Node) (*model.Policy, error) {
	props := node.Props
	policy := &model.Policy{}

	if id, ok := props["id"].(string); ok {
		policy.ID = id
	} else {
		return nil, fmt.Errorf("failed to assert type for policy ID: %v", props["id"])
	}

	if name, ok := props["name"].(string); ok {
		policy.Name = name
	} else {
		return nil, fmt.Errorf("failed to assert type for policy name: %v", props["name"])
	}

	if description, ok := props["description"].(string); ok {
		policy.Description = description
	}

	if effect, ok := props["effect"].(string); ok {
		policy.Effect = model.Effect(effect)
	} else {
		return nil, fmt.Errorf("failed to assert type for policy effect: %v", props["effect"])
	}

	if priority, ok := props["priority"].(int64); ok {
		policy.Priority = int(priority)
	} else {
		return nil, fmt.Errorf("failed to assert type for policy priority: %v", props["priority"])
	}

	if status, ok := props["status"].(string); ok {
		policy.Status = model.PolicyStatus(status)
	} else {
		return nil, fmt.Errorf("failed to assert type for policy status: %v", props["status"])
	}

	if algorithm, ok := props["combiningAlgorithm"].(string); ok {
		policy.CombiningAlgorithm = model.CombiningAlgorithm(algorithm)
	}

	if version, ok := props["version"].(int64); ok {
		policy.Version = int(version)
	} else {
		return nil, fmt.Errorf("failed to assert type for policy version: %v", props["version"])
	}

	if createdAt, ok := props["createdAt"].(string); ok {
		policy.CreatedAt = parseTime(createdAt)
	} else {
		return nil, fmt.Errorf("failed to assert type for policy createdAt: %v", props["createdAt"])
	}

	if updatedAt, ok := props["updatedAt"].(string); ok {
		policy.UpdatedAt = parseTime(updatedAt)
	} else {
		return nil, fmt.Errorf("failed to assert type for policy updatedAt: %v", props["updatedAt"])
	}

	policy.ValidFrom = parseNullableTime(props["validFrom"])
	policy.ValidTo = parseNullableTime(props["validTo"])

	if targetJSON, ok := props["target"].(string); ok {
		if err := json.Unmarshal([]byte(targetJSON), &policy.Target); err != nil {
			return nil, fmt.Errorf("failed to unmarshal policy target: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to assert type for policy target: %v", props["target"])
	}

	if rulesJSON, ok := props["rules"].(string); ok {
		if err := json.Unmarshal([]byte(rulesJSON), &policy.Rules); err != nil {
			return nil, fmt.Errorf("failed to unmarshal policy rules: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to assert type for policy rules: %v", props["rules"])
	}

	if obligationsJSON, ok := props["obligations"].(string); ok {
		if err := json.Unmarshal([]byte(obligationsJSON), &policy.Obligations); err != nil {
			return nil, fmt.Errorf("failed to unmarshal policy obligations: %w", err)
		}
	}

	if adviceJSON, ok := props["advice"].(string); ok {
		if err := json.Unmarshal([]byte(adviceJSON), &policy.Advice); err != nil {
			return nil, fmt.Errorf("failed to unmarshal policy advice: %w", err)
		}
	}

	if tagsJSON, ok := props["tags"].(string); ok {
		if err := json.Unmarshal([]byte(tagsJSON), &policy.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal policy tags: %w", err)
		}
	}

	return policy, nil
}

// Helper function to parse time
func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

// Helper function to parse nullable time
func parseNullableTime(v interface{}) *time.Time {
	if s, ok := v.(string); ok && s != "" {
		t, _ := time.Parse(time.RFC3339, s)
		return &t
	}
	return nil
}

// Helper function to format nullable time
func formatNullableTime(t *time.Time) interface{} {
	if t != nil {
		return t.Format(time.RFC3339)
	}
	return nil
}
