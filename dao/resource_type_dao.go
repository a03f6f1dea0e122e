// dao/resource_type_dao.go
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

type ResourceTypeDAO struct {
	Driver neo4j.Driver
}

func NewResourceTypeDAO(driver neo4j.Driver) *ResourceTypeDAO {
	dao := &ResourceTypeDAO{Driver: driver}
	ctx := context.Background()
	if err := dao.EnsureUniqueConstraint(ctx); err != nil {
		logger.Fatal("Failed to ensure unique constraint on ResourceType", zap.Error(err))
	}
	return dao
}

func (dao *ResourceTypeDAO) EnsureUniqueConstraint(ctx context.Context) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        CREATE CONSTRAINT unique_resource_type IF NOT EXISTS
        FOR (rt:RESOURCE_TYPE) REQUIRE rt.type IS UNIQUE
        `
		if _, err := transaction.Run(query, nil); err != nil {
			return nil, fmt.Errorf("failed to create unique constraint: %w", err)
		}
		return nil, nil
	})
	return err
}

// UpsertResourceDefinition creates or replaces a resource type definition.
func (dao *ResourceTypeDAO) UpsertResourceDefinition(ctx context.Context, def model.ResourceDefinition) (string, error) {
	start := time.Now()
	logger.Info("Upserting resource definition", zap.String("resourceType", def.Type))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MERGE (rt:RESOURCE_TYPE {type: $type})
        ON CREATE SET rt += $props, rt.createdAt = $now
        ON MATCH SET rt += $props
        RETURN rt.type as type
        `

		attrsJSON, _ := json.Marshal(def.Attributes)
		parameters := map[string]interface{}{
			"type": def.Type,
			"now":  time.Now().Format(time.RFC3339),
			"props": map[string]interface{}{
				"name":           def.Name,
				"category":       def.Category,
				"classification": def.Classification,
				"attributes":     string(attrsJSON),
				"updatedAt":      time.Now().Format(time.RFC3339),
			},
		}
		res, err := transaction.Run(query, parameters)
		if err != nil {
			return nil, arbiter_errors.ErrDatabaseOperation
		}
		if res.Next() {
			t, _ := res.Record().Get("type")
			return t, nil
		}
		return nil, arbiter_errors.ErrInternalServer
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to upsert resource definition",
			zap.Error(err),
			zap.String("resourceType", def.Type),
			zap.Duration("duration", duration))
		return "", err
	}

	logger.Info("Resource definition upserted successfully",
		zap.String("resourceType", def.Type),
		zap.Duration("duration", duration))
	return fmt.Sprintf("%v", result), nil
}

// GetResourceDefinition retrieves the definition for a resource type.
func (dao *ResourceTypeDAO) GetResourceDefinition(ctx context.Context, resourceType string) (*model.ResourceDefinition, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
    MATCH (rt:RESOURCE_TYPE {type: $type})
    RETURN rt
    `
	result, err := session.Run(query, map[string]interface{}{"type": resourceType})
	if err != nil {
		return nil, fmt.Errorf("failed to execute get resource definition query: %w", err)
	}

	if result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		return mapNodeToResourceDefinition(node)
	}
	return nil, arbiter_errors.ErrResourceDefinitionNotFound
}

// DeleteResourceDefinition removes a resource type definition.
func (dao *ResourceTypeDAO) DeleteResourceDefinition(ctx context.Context, resourceType string) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (rt:RESOURCE_TYPE {type: $type})
        DETACH DELETE rt
        `
		result, err := transaction.Run(query, map[string]interface{}{"type": resourceType})
		if err != nil {
			return nil, fmt.Errorf("failed to execute delete query: %w", err)
		}
		summary, err := result.Consume()
		if err != nil {
			return nil, fmt.Errorf("failed to consume delete result: %w", err)
		}
		if summary.Counters().NodesDeleted() == 0 {
			return nil, arbiter_errors.ErrResourceDefinitionNotFound
		}
		return nil, nil
	})
	if err != nil {
		logger.Error("Failed to delete resource definition",
			zap.Error(err),
			zap.String("resourceType", resourceType))
		return err
	}
	return nil
}

// ListResourceDefinitions retrieves all registered resource type definitions.
func (dao *ResourceTypeDAO) ListResourceDefinitions(ctx context.Context) ([]*model.ResourceDefinition, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
    MATCH (rt:RESOURCE_TYPE)
    RETURN rt
    ORDER BY rt.type
    `
	result, err := session.Run(query, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to execute list resource definitions query: %w", err)
	}

	var defs []*model.ResourceDefinition
	for result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		def, err := mapNodeToResourceDefinition(node)
		if err != nil {
			return nil, fmt.Errorf("failed to map resource definition node to struct: %w", err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func mapNodeToResourceDefinition(node neo4j.Node) (*model.ResourceDefinition, error) {
	props := node.Props
	def := &model.ResourceDefinition{}

	if resourceType, ok := props["type"].(string); ok {
		def.Type = resourceType
	} else {
		return nil, fmt.Errorf("failed to assert type for resource type: %v", props["type"])
	}

	if name, ok := props["name"].(string); ok {
		def.Name = name
	}
	if category, ok := props["category"].(string); ok {
		def.Category = category
	}
	if classification, ok := props["classification"].(string); ok {
		def.Classification = classification
	}

	if attrsJSON, ok := props["attributes"].(string); ok && attrsJSON != "" {
		if err := json.Unmarshal([]byte(attrsJSON), &def.Attributes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal resource type attributes: %w", err)
		}
	}

	if createdAt, ok := props["createdAt"].(string); ok {
		def.CreatedAt = parseTime(createdAt)
	}
	if updatedAt, ok := props["updatedAt"].(string); ok {
		def.UpdatedAt = parseTime(updatedAt)
	}

	return def, nil
}
