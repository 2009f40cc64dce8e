package audit_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langhour/tracker/core/audit"
	dummydb "github.com/langhour/tracker/storage/database/dummy"
	testutil "github.com/langhour/tracker/tests"
)

func TestService(t *testing.T) {
	ctx := context.Background()
	svc := audit.NewService(dummydb.NewAuditRepository(dummydb.Open()), testutil.NewLogger())

	before := time.Now().UTC()
	svc.Record(ctx, "u1", "logged in")
	svc.Record(ctx, "u2", "imported %d entries", 12)
	svc.Record(ctx, "u1", strings.Repeat("x", 300))

	logs, err := svc.Query(ctx, audit.QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, logs, 3)

	logs, err = svc.Query(ctx, audit.QueryFilter{UserID: "u2", Since: before})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "imported 12 entries", logs[0].Message)

	logs, err = svc.Query(ctx, audit.QueryFilter{UserID: "u1", Limit: 1})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.LessOrEqual(t, len(logs[0].Message), 255)

	logs, err = svc.Query(ctx, audit.QueryFilter{Since: time.Now().UTC().Add(time.Hour)})
	require.NoError(t, err)
	assert.Empty(t, logs)
}
