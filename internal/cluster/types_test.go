package cluster

import (
	"encoding/json"
	"testing"
)

func TestResponseOK(t *testing.T) {
	tests := []struct {
		name   string
		status string
		want   bool
	}{
		{"ok status", StatusOK, true},
		{"ack status", StatusAck, true},
		{"error status", StatusError, false},
		{"empty status", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Response{Status: tt.status}
			if got := r.OK(); got != tt.want {
				t.Errorf("OK() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRegisterRequestWireFormat(t *testing.T) {
	// The probe port must travel under the key "port", not "udp_port".
	req := Request{
		Action:  ActionRegister,
		NodeID:  "n1",
		Host:    "127.0.0.1",
		UDPPort: 6001,
		Capacity: &NodeCapacity{
			CPU:       4,
			MemoryGB:  8,
			Storage:   100 << 30,
			Bandwidth: 1_000_000_000,
		},
	}

	raw, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["port"] != float64(6001) {
		t.Errorf("probe port key = %v, want 6001 under \"port\"", decoded["port"])
	}
	if _, ok := decoded["udp_port"]; ok {
		t.Error("register request must not carry udp_port")
	}
	if _, ok := decoded["tcp_port"]; ok {
		t.Error("unset tcp_port must be omitted so the controller can default it")
	}

	capFields, ok := decoded["capacity"].(map[string]any)
	if !ok {
		t.Fatalf("capacity missing from wire form: %s", raw)
	}
	for _, key := range []string{"cpu", "memory", "storage", "bandwidth"} {
		if _, ok := capFields[key]; !ok {
			t.Errorf("capacity missing key %q", key)
		}
	}
}

func TestUnitConversions(t *testing.T) {
	tests := []struct {
		name string
		got  int64
		want int64
	}{
		{"100 GB", GBToBytes(100), 107374182400},
		{"1 GB", GBToBytes(1), 1 << 30},
		{"10 MB", MBToBytes(10), 10 * 1024 * 1024},
		{"1000 Mbps", MbpsToBPS(1000), 1_000_000_000},
		{"100 Mbps", MbpsToBPS(100), 100_000_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %d, want %d", tt.got, tt.want)
			}
		})
	}
}

func TestParseAnnouncement(t *testing.T) {
	tests := []struct {
		name    string
		host    string
		payload string
		want    string
		ok      bool
	}{
		{"valid", "192.168.1.7", discoveryPrefix + "8080", "192.168.1.7:8080", true},
		{"wrong prefix", "192.168.1.7", "someother|8080", "", false},
		{"non-numeric port", "192.168.1.7", discoveryPrefix + "eighty", "", false},
		{"default library payload", "192.168.1.7", "hi", "", false},
		{"empty payload", "192.168.1.7", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseAnnouncement(tt.host, []byte(tt.payload))
			if ok != tt.ok || got != tt.want {
				t.Errorf("parseAnnouncement(%q, %q) = (%q, %v), want (%q, %v)",
					tt.host, tt.payload, got, ok, tt.want, tt.ok)
			}
		})
	}
}
