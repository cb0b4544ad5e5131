package topostore

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/signalsfoundry/optical-pce/internal/topotest"
	"github.com/signalsfoundry/optical-pce/model"
)

const twoRoadmsYAML = `
nodes:
  - id: ROADM-A
    role: ROADM
    ports:
      - {id: DEG1-TTP-TXRX, kind: degree, group: 1}
      - {id: SRG1-PP1-TXRX, kind: srg, group: 1}
      - {id: SRG1-PP2-TXRX, kind: srg, group: 1}
  - id: ROADM-B
    role: ROADM
    ports:
      - {id: DEG1-TTP-TXRX, kind: degree, group: 1}
      - {id: SRG1-PP1-TXRX, kind: srg, group: 1}
      - {id: SRG1-PP2-TXRX, kind: srg, group: 1}
links:
  - id: ROADM-A-DEG1-TTP-TXRXtoROADM-B-DEG1-TTP-TXRX
    kind: ROADM-TO-ROADM
    source: {node_id: ROADM-A, port_id: DEG1-TTP-TXRX}
    dest: {node_id: ROADM-B, port_id: DEG1-TTP-TXRX}
    opposite_link_id: ROADM-B-DEG1-TTP-TXRXtoROADM-A-DEG1-TTP-TXRX
    length_km: 100
    span_loss_db: 12
    latency_us: 501
  - id: ROADM-B-DEG1-TTP-TXRXtoROADM-A-DEG1-TTP-TXRX
    kind: ROADM-TO-ROADM
    source: {node_id: ROADM-B, port_id: DEG1-TTP-TXRX}
    dest: {node_id: ROADM-A, port_id: DEG1-TTP-TXRX}
    opposite_link_id: ROADM-A-DEG1-TTP-TXRXtoROADM-B-DEG1-TTP-TXRX
    length_km: 100
    span_loss_db: 12
    latency_us: 501
`

func write(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadSnapshotFileYAMLMatchesFixture(t *testing.T) {
	got, err := LoadSnapshotFile(write(t, "topology.yaml", twoRoadmsYAML))
	if err != nil {
		t.Fatalf("LoadSnapshotFile: %v", err)
	}
	if diff := cmp.Diff(topotest.TwoRoadms(), got); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRequestJSON(t *testing.T) {
	body := `{
  "id": "svc-1",
  "a_end": {"node_id": "XPDR-A", "port_id": "XPDR1-CLIENT1"},
  "z_end": {"node_id": "XPDR-C"},
  "service_type": "10GE",
  "constraints": {"exclude_srlgs": [77], "max_hops": 9}
}`
	got, err := LoadRequest(strings.NewReader(body), FormatJSON)
	if err != nil {
		t.Fatalf("LoadRequest: %v", err)
	}
	want := &model.ServiceRequest{
		ID:          "svc-1",
		AEnd:        topotest.TP("XPDR-A", topotest.Client(1)),
		ZEnd:        model.TerminationPoint{NodeID: "XPDR-C"},
		ServiceType: model.Service10GE,
		Constraints: model.Constraints{ExcludeSRLGs: []uint32{77}, MaxHops: 9},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("request mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	if _, err := LoadRequest(strings.NewReader(`{"id":"x","bandwith":5}`), FormatJSON); err == nil {
		t.Fatalf("LoadRequest accepted unknown JSON field")
	}
	if _, err := LoadSnapshot(strings.NewReader("nodes: []\nlinkz: []\n"), FormatYAML); err == nil {
		t.Fatalf("LoadSnapshot accepted unknown YAML field")
	}
}

func TestLoadEmptyYAML(t *testing.T) {
	if _, err := LoadSnapshot(strings.NewReader(""), FormatYAML); err == nil {
		t.Fatalf("LoadSnapshot accepted an empty document")
	}
}

func TestFormatFor(t *testing.T) {
	for path, want := range map[string]Format{
		"a.json": FormatJSON,
		"b.YAML": FormatYAML,
		"c.yml":  FormatYAML,
	} {
		got, err := FormatFor(path)
		if err != nil || got != want {
			t.Fatalf("FormatFor(%q) = %q, %v; want %q", path, got, err, want)
		}
	}
	if _, err := LoadSnapshotFile(write(t, "topology.txt", "{}")); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("LoadSnapshotFile(.txt) error = %v, want ErrUnknownFormat", err)
	}
}

func TestLoadMeasurementsFile(t *testing.T) {
	path := write(t, "loss.yaml", `
ROADM-A:
  - {link_id: span-ab, span_loss_db: 11.2}
ROADM-B:
  - {link_id: span-ba, span_loss_db: 11.9}
`)
	got, err := LoadMeasurementsFile(path)
	if err != nil {
		t.Fatalf("LoadMeasurementsFile: %v", err)
	}
	if len(got) != 2 || got["ROADM-B"][0].SpanLossDB != 11.9 {
		t.Fatalf("measurements = %+v", got)
	}
}
