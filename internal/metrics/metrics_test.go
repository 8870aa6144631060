package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestWriteTextfile(t *testing.T) {
	RemoteRequestsTotal.WithLabelValues("get", "200").Inc()
	EnsureOutcomesTotal.WithLabelValues("created").Add(3)

	path := filepath.Join(t.TempDir(), "nx.prom")
	if err := WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read textfile: %v", err)
	}
	out := string(data)

	for _, want := range []string{
		`nx_remote_requests_total{op="get",status="200"}`,
		`nx_ensure_outcomes_total{result="created"}`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected textfile to contain %s, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "go_goroutines") {
		t.Error("Expected no runtime metrics in textfile")
	}
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(UploadsTotal.WithLabelValues("skipped"))
	UploadsTotal.WithLabelValues("skipped").Inc()

	if got := testutil.ToFloat64(UploadsTotal.WithLabelValues("skipped")); got != before+1 {
		t.Errorf("Expected skipped uploads %v, got %v", before+1, got)
	}
}
