package db

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchemaConstrainsExceptionShape(t *testing.T) {
	for _, name := range []string{"zone_exceptions_window_pair", "zone_exceptions_kind_fields"} {
		assert.Equal(t, 2, strings.Count(Schema, "'"+name+"'")+strings.Count(Schema, " "+name+" "), name)
	}
	for _, kind := range []string{"'special-hours'", "'special-cost'", "'special-time-estimate'"} {
		assert.Contains(t, Schema, "WHEN "+kind, kind)
	}
}
