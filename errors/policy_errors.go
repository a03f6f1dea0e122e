// errors/policy_errors.go
package errors

import "errors"

var (
	ErrPolicyNotFound        = errors.New("policy not found")
	ErrPolicyConflict        = errors.New("policy conflict")
	ErrDuplicatePolicyName   = errors.New("policy name already in use")
	ErrInvalidPolicyData     = errors.New("invalid policy data")
	ErrInvalidStatusChange   = errors.New("invalid policy status transition")
	ErrPolicyArchived        = errors.New("policy is archived and cannot change state")
	ErrDatabaseOperation     = errors.New("database operation failed")
	ErrInternalServer        = errors.New("internal server error")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrInvalidPagination     = errors.New("invalid pagination parameters")
	ErrInvalidSearchCriteria = errors.New("invalid search criteria")
)
