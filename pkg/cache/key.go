package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/odl-optics/remains-relay/pkg/pagination"
)

// CacheKey identifies one remains query for one tenant.
type CacheKey struct {
	// AppName is the Optima tenant the query was sent to
	AppName string

	// Product is the product category (e.g. "LENS")
	Product string

	// DepartmentID is nil when the query spans all departments
	DepartmentID *int64

	// Filter is the upstream filter object, if any
	Filter map[string]any
}

// KeyFor builds the key for payload sent to appName.
func KeyFor(appName string, payload pagination.Payload) CacheKey {
	return CacheKey{
		AppName:      appName,
		Product:      payload.Product,
		DepartmentID: payload.DepartmentID,
		Filter:       payload.Filter,
	}
}

// String generates a deterministic cache key string.
// Format: remains:app:product:dept=ID:filter=HASH
//
// Example:
//
//	remains:odl:LENS:dept=1000000021:filter=-
func (k CacheKey) String() string {
	parts := []string{"remains", k.AppName, k.Product}

	if k.DepartmentID != nil {
		parts = append(parts, "dept="+strconv.FormatInt(*k.DepartmentID, 10))
	} else {
		parts = append(parts, "dept=all")
	}

	parts = append(parts, "filter="+filterHash(k.Filter))

	return strings.Join(parts, ":")
}

// filterHash hashes the filter's JSON encoding. encoding/json sorts map keys,
// so equal filters always hash equal.
func filterHash(filter map[string]any) string {
	if len(filter) == 0 {
		return "-"
	}
	data, err := json.Marshal(filter)
	if err != nil {
		return "unhashable"
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}
