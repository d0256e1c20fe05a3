// toolkit/db/mongodb/errors.go
package mongodb

import (
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"
)

// Server error codes used for classification.
const (
	CodeUnauthorized          = 13
	CodeAuthenticationFailed  = 18
	CodeNamespaceNotFound     = 26
	CodeIndexAlreadyExists    = 68
	CodeIndexOptionsConflict  = 85
	CodeIndexKeySpecsConflict = 86
	CodeDuplicateKey          = 11000
)

// IsDup reports whether err is a Mongo duplicate-key error (E11000).
// It handles WriteException, BulkWriteException, CommandError, and
// falls back to a string contains check for maximum robustness.
func IsDup(err error) bool {
	if err == nil {
		return false
	}

	// Bulk write
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		for _, we := range bwe.WriteErrors {
			if we.Code == CodeDuplicateKey {
				return true
			}
		}
		if bwe.WriteConcernError != nil && bwe.WriteConcernError.Code == CodeDuplicateKey {
			return true
		}
	}

	// Regular write
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == CodeDuplicateKey {
				return true
			}
		}
		if we.WriteConcernError != nil && we.WriteConcernError.Code == CodeDuplicateKey {
			return true
		}
	}

	// Command error (createIndexes over duplicate data surfaces here)
	if hasCode(err, CodeDuplicateKey) {
		return true
	}

	// Some hosts surface "E11000" as text only.
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "e11000") || strings.Contains(s, "duplicate key")
}

// IsIndexConflict reports whether err says an index with the same name or the
// same key pattern already exists with a different definition.
func IsIndexConflict(err error) bool {
	return hasCode(err, CodeIndexOptionsConflict) ||
		hasCode(err, CodeIndexKeySpecsConflict) ||
		hasCode(err, CodeIndexAlreadyExists)
}

// IsNamespaceNotFound reports whether err is NamespaceNotFound (missing collection).
func IsNamespaceNotFound(err error) bool {
	return hasCode(err, CodeNamespaceNotFound)
}

// IsConnectivity reports whether err means the server is unreachable, the
// client is not usable, or the credentials were rejected.
func IsConnectivity(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, mongo.ErrClientDisconnected) {
		return true
	}
	if mongo.IsNetworkError(err) {
		return true
	}
	var sse topology.ServerSelectionError
	if errors.As(err, &sse) {
		return true
	}
	var ce topology.ConnectionError
	if errors.As(err, &ce) {
		return true
	}
	if hasCode(err, CodeAuthenticationFailed) || hasCode(err, CodeUnauthorized) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "server selection error") ||
		strings.Contains(s, "auth error") ||
		strings.Contains(s, "connection refused")
}

func hasCode(err error, code int) bool {
	if err == nil {
		return false
	}
	var se mongo.ServerError
	if errors.As(err, &se) && se.HasErrorCode(code) {
		return true
	}
	var ce mongo.CommandError
	return errors.As(err, &ce) && int(ce.Code) == code
}
