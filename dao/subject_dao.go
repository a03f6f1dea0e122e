// dao/subject_dao.go
package dao

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	arbiter_errors "github.com/arbiterhq/arbiter/errors"
	logger "github.com/arbiterhq/arbiter/logging"
	"github.com/arbiterhq/arbiter/model"
)

type SubjectDAO struct {
	Driver neo4j.Driver
}

func NewSubjectDAO(driver neo4j.Driver) *SubjectDAO {
	dao := &SubjectDAO{Driver: driver}
	ctx := context.Background()
	if err := dao.EnsureUniqueConstraint(ctx); err != nil {
		logger.Fatal("Failed to ensure unique constraint on Subject ID", zap.Error(err))
	}
	return dao
}

func (dao *SubjectDAO) EnsureUniqueConstraint(ctx context.Context) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        CREATE CONSTRAINT unique_subject_id IF NOT EXISTS
        FOR (s:SUBJECT) REQUIRE s.id IS UNIQUE
        `
		if _, err := transaction.Run(query, nil); err != nil {
			return nil, fmt.Errorf("failed to create unique constraint: %w", err)
		}
		return nil, nil
	})
	return err
}

// UpsertSubject creates or replaces the stored subject record.
func (dao *SubjectDAO) UpsertSubject(ctx context.Context, subject model.Subject) (string, error) {
	start := time.Now()
	logger.Info("Upserting subject", zap.String("subjectID", subject.ID))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MERGE (s:SUBJECT {id: $id})
        ON CREATE SET s += $props, s.createdAt = $now
        ON MATCH SET s += $props
        RETURN s.id as id
        `

		rolesJSON, _ := json.Marshal(subject.RoleAssignments)
		attrsJSON, _ := json.Marshal(subject.Attributes)
		approvalJSON, _ := json.Marshal(subject.ApprovalLimit)

		parameters := map[string]interface{}{
			"id":  subject.ID,
			"now": time.Now().Format(time.RFC3339),
			"props": map[string]interface{}{
				"name":            subject.Name,
				"email":           subject.Email,
				"active":          subject.Active,
				"departmentId":    subject.DepartmentID,
				"location":        subject.Location,
				"clearanceLevel":  subject.ClearanceLevel,
				"approvalLimit":   string(approvalJSON),
				"roleAssignments": string(rolesJSON),
				"attributes":      string(attrsJSON),
				"updatedAt":       time.Now().Format(time.RFC3339),
			},
		}
		res, err := transaction.Run(query, parameters)
		if err != nil {
			return nil, arbiter_errors.ErrDatabaseOperation
		}
		if res.Next() {
			id, _ := res.Record().Get("id")
			return id, nil
		}
		return nil, arbiter_errors.ErrInternalServer
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to upsert subject",
			zap.Error(err),
			zap.String("subjectID", subject.ID),
			zap.Duration("duration", duration))
		return "", err
	}

	logger.Info("Subject upserted successfully",
		zap.String("subjectID", subject.ID),
		zap.Duration("duration", duration))
	return fmt.Sprintf("%v", result), nil
}

// GetSubject retrieves a subject record by ID.
func (dao *SubjectDAO) GetSubject(ctx context.Context, subjectID string) (*model.Subject, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
    MATCH (s:SUBJECT {id: $id})
    RETURN s
    `
	result, err := session.Run(query, map[string]interface{}{"id": subjectID})
	if err != nil {
		return nil, fmt.Errorf("failed to execute get subject query: %w", err)
	}

	if result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		return mapNodeToSubject(node)
	}
	return nil, arbiter_errors.ErrSubjectNotFound
}

// DeleteSubject removes a subject record.
func (dao *SubjectDAO) DeleteSubject(ctx context.Context, subjectID string) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (s:SUBJECT {id: $id})
        DETACH DELETE s
        `
		result, err := transaction.Run(query, map[string]interface{}{"id": subjectID})
		if err != nil {
			return nil, fmt.Errorf("failed to execute delete query: %w", err)
		}
		summary, err := result.Consume()
		if err != nil {
			return nil, fmt.Errorf("failed to consume delete result: %w", err)
		}
		if summary.Counters().NodesDeleted() == 0 {
			return nil, arbiter_errors.ErrSubjectNotFound
		}
		return nil, nil
	})
	if err != nil {
		logger.Error("Failed to delete subject",
			zap.Error(err),
			zap.String("subjectID", subjectID))
		return err
	}
	return nil
}

// ListSubjects retrieves subjects with pagination.
func (dao *SubjectDAO) ListSubjects(ctx context.Context, limit, offset int) ([]*model.Subject, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
    MATCH (s:SUBJECT)
    RETURN s
    ORDER BY s.id
    SKIP $offset
    LIMIT $limit
    `
	result, err := session.Run(query, map[string]interface{}{"limit": limit, "offset": offset})
	if err != nil {
		return nil, fmt.Errorf("failed to execute list subjects query: %w", err)
	}

	var subjects []*model.Subject
	for result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		subject, err := mapNodeToSubject(node)
		if err != nil {
			return nil, fmt.Errorf("failed to map subject node to struct: %w", err)
		}
		subjects = append(subjects, subject)
	}
	return subjects, nil
}

func mapNodeToSubject(node neo4j.Node) (*model.Subject, error) {
	props := node.Props
	subject := &model.Subject{}

	if id, ok := props["id"].(string); ok {
		subject.ID = id
	} else {
		return nil, fmt.Errorf("failed to assert type for subject ID: %v", props["id"])
	}

	if name, ok := props["name"].(string); ok {
		subject.Name = name
	}
	if email, ok := props["email"].(string); ok {
		subject.Email = email
	}
	if active, ok := props["active"].(bool); ok {
		subject.Active = active
	}
	if departmentID, ok := props["departmentId"].(string); ok {
		subject.DepartmentID = departmentID
	}
	if location, ok := props["location"].(string); ok {
		subject.Location = location
	}
	if clearance, ok := props["clearanceLevel"].(string); ok {
		subject.ClearanceLevel = clearance
	}

	if approvalJSON, ok := props["approvalLimit"].(string); ok && approvalJSON != "" && approvalJSON != "null" {
		var limit model.Money
		if err := json.Unmarshal([]byte(approvalJSON), &limit); err != nil {
			return nil, fmt.Errorf("failed to unmarshal subject approval limit: %w", err)
		}
		subject.ApprovalLimit = &limit
	}

	if rolesJSON, ok := props["roleAssignments"].(string); ok && rolesJSON != "" {
		if err := json.Unmarshal([]byte(rolesJSON), &subject.RoleAssignments); err != nil {
			return nil, fmt.Errorf("failed to unmarshal subject role assignments: %w", err)
		}
	}

	if attrsJSON, ok := props["attributes"].(string); ok && attrsJSON != "" {
		if err := json.Unmarshal([]byte(attrsJSON), &subject.Attributes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal subject attributes: %w", err)
		}
	}

	if createdAt, ok := props["createdAt"].(string); ok {
		subject.CreatedAt = parseTime(createdAt)
	}
	if updatedAt, ok := props["updatedAt"].(string); ok {
		subject.UpdatedAt = parseTime(updatedAt)
	}

	return subject, nil
}
