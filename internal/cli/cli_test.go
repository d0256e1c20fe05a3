package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/mandateidx/config"
	"github.com/dalemusser/mandateidx/internal/indexes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, k := range []string{"MONGO_URI", "MONGO_DATABASE", "LOG_LEVEL", "ENV", "OUTPUT"} {
		t.Setenv(config.EnvPrefix+"_"+k, "")
	}
	t.Setenv("MONGODB_URI", "")
	t.Setenv("MONGODB_DATABASE", "")
}

func unreachable(context.Context, *config.Config, string) (*mongo.Client, error) {
	return nil, errors.New("server selection error: connection refused")
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), "mandateidx", args, &stdout, &stderr, unreachable)
	return code, stdout.String(), stderr.String()
}

func TestHelp(t *testing.T) {
	code, out, _ := runCLI(t, "help")
	assert.Equal(t, ExitOK, code)
	for _, c := range commands {
		assert.Contains(t, out, c.name)
	}
}

func TestVersion(t *testing.T) {
	code, out, _ := runCLI(t, "version")
	assert.Equal(t, ExitOK, code)
	assert.Equal(t, "mandateidx dev\n", out)
}

func TestUnknownCommand(t *testing.T) {
	code, _, errOut := runCLI(t, "drop")
	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, errOut, `unknown command: "drop"`)
}

func TestBadFlagAndExtraArgs(t *testing.T) {
	code, _, _ := runCLI(t, "ensure", "--no-such-flag")
	assert.Equal(t, ExitUsage, code)

	code, _, errOut := runCLI(t, "verify", "extra")
	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, errOut, "unexpected arguments: extra")
}

func TestInvalidConfigIsUsageError(t *testing.T) {
	isolate(t)
	code, _, errOut := runCLI(t, "--mongo_uri", "http://nope")
	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, errOut, "mongo_uri")
}

func TestConnectionFailure(t *testing.T) {
	isolate(t)
	code, out, errOut := runCLI(t, "ensure", "--db_connect_timeout", "1s")
	assert.Equal(t, ExitFailure, code)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "connection error during connect")
}

func sampleReport(t *testing.T, withConflict bool) *indexes.Report {
	t.Helper()
	specs := indexes.Core()
	rep := &indexes.Report{Database: "mandate_db"}
	for i, s := range specs {
		o := indexes.Outcome{Spec: s, Status: indexes.StatusCreated, Duration: time.Duration(i) * time.Millisecond}
		if withConflict && s.Name == indexes.AuditMandateIndex {
			o.Status = indexes.StatusConflict
			o.Err = &indexes.NameConflictError{Spec: s, Existing: indexes.IndexInfo{Name: s.Name, Keys: []indexes.Key{indexes.Asc("batchId")}}}
		}
		rep.Outcomes = append(rep.Outcomes, o)
	}
	return rep
}

func TestRenderReportText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderReport(&buf, config.OutputText, "ensure", sampleReport(t, false)))
	out := buf.String()
	assert.Contains(t, out, "mandates.idx_mandate_lookup")
	assert.Contains(t, out, "{mandateId: 1, changeTimestamp: -1}")
	assert.True(t, strings.HasSuffix(out, confirmation+"\n"))

	buf.Reset()
	require.NoError(t, renderReport(&buf, config.OutputText, "ensure", sampleReport(t, true)))
	assert.NotContains(t, buf.String(), confirmation)
	assert.Contains(t, buf.String(), "conflict")
}

func TestRenderReportJSONAndYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderReport(&buf, config.OutputJSON, "verify", sampleReport(t, true)))
	assert.Contains(t, buf.String(), `"status": "conflict"`)
	assert.Contains(t, buf.String(), `"ok": false`)

	buf.Reset()
	require.NoError(t, renderReport(&buf, config.OutputYAML, "verify", sampleReport(t, false)))
	assert.Contains(t, buf.String(), "database: mandate_db")
	assert.Contains(t, buf.String(), "index: idx_audit_mandate_time")
}

func TestRenderInventoryMarksManaged(t *testing.T) {
	inv := []indexes.CollectionIndexes{
		{Collection: "mandates", Indexes: []indexes.IndexInfo{
			{Name: "_id_", Keys: []indexes.Key{indexes.Asc("_id")}},
			{Name: indexes.MandateLookupIndex, Keys: indexes.Core()[0].Keys, Unique: true},
		}},
		{Collection: "mandate_audits"},
	}
	var buf bytes.Buffer
	require.NoError(t, renderInventory(&buf, config.OutputText, "mandate_db", inv, indexes.Core()))
	out := buf.String()
	assert.Contains(t, out, "unique *")
	assert.Contains(t, out, "(no indexes)")

	ttl := int64(60)
	inv[1].Indexes = []indexes.IndexInfo{{Name: "expire", Keys: []indexes.Key{indexes.Asc("changeTimestamp")}, TTL: &ttl}}
	buf.Reset()
	require.NoError(t, renderInventory(&buf, config.OutputText, "mandate_db", inv, indexes.Core()))
	assert.Contains(t, buf.String(), "expireAfterSeconds: 60")
}

func TestRenderPlans(t *testing.T) {
	var buf bytes.Buffer
	checks := []indexes.PlanCheck{
		{Shape: "audit-trail", Expected: indexes.AuditMandateTimeIndex, Used: []string{indexes.AuditMandateTimeIndex}, OK: true},
		{Shape: "recent-audits", Expected: indexes.AuditTimestampIndex},
	}
	require.NoError(t, renderPlans(&buf, config.OutputText, "mandate_db", checks))
	assert.Contains(t, buf.String(), "MISMATCH")
	assert.Contains(t, buf.String(), "COLLSCAN")
}
