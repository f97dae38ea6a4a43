package naming

import (
	"reflect"
	"strings"
	"testing"
)

func TestConnectionCandidates(t *testing.T) {
	r := Default()

	tests := []struct {
		container string
		want      []string
	}{
		{"ptvnc1", []string{"pt01", "pt1"}},
		{"ptvnc01", []string{"pt01", "pt1"}},
		{"ptvnc9", []string{"pt09", "pt9"}},
		{"ptvnc10", []string{"pt10"}},
		{"ptvnc123", []string{"pt123"}},
		{"ptvnc0", []string{"pt00", "pt0"}},
		{"ptvnc-lab", []string{"pt-lab"}},
		{"ptvnclab01", []string{"ptlab01"}},
		{"ptvnc_x", []string{"pt_x"}},
		{"ptvnc", nil},
		{"web1", nil},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.container, func(t *testing.T) {
			got := r.ConnectionCandidates(tt.container)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ConnectionCandidates(%q) = %v, want %v", tt.container, got, tt.want)
			}
		})
	}
}

func TestCandidates_Rules(t *testing.T) {
	r := Default()

	got := r.Candidates("ptvnc3")
	want := []Candidate{{"pt03", RulePadded}, {"pt3", RuleUnpadded}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Candidates(ptvnc3) = %v, want %v", got, want)
	}

	got = r.Candidates("ptvnc-lab")
	if len(got) != 1 || got[0].Rule != RuleVerbatim {
		t.Errorf("Candidates(ptvnc-lab) = %v, want single verbatim candidate", got)
	}

	got = r.Candidates("ptvnc99999999999999999999")
	want = []Candidate{{"pt99999999999999999999", RuleVerbatim}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Candidates(overflowing suffix) = %v, want %v", got, want)
	}
}

func TestCandidates_NoDuplicates(t *testing.T) {
	r := Default()
	for _, name := range []string{"ptvnc1", "ptvnc10", "ptvnc99", "ptvnc100", "ptvnc-a"} {
		seen := map[string]bool{}
		for _, c := range r.Candidates(name) {
			if seen[c.Name] {
				t.Errorf("Candidates(%q) contains duplicate %q", name, c.Name)
			}
			seen[c.Name] = true
		}
	}
}

func TestCandidates_Deterministic(t *testing.T) {
	r := Default()
	first := r.ConnectionCandidates("ptvnc7")
	for i := 0; i < 5; i++ {
		if got := r.ConnectionCandidates("ptvnc7"); !reflect.DeepEqual(got, first) {
			t.Fatalf("ConnectionCandidates not deterministic: %v vs %v", got, first)
		}
	}
}

func TestCandidates_CustomPrefixes(t *testing.T) {
	r := Resolver{ContainerPrefix: "labvm", ConnectionPrefix: "lab"}

	got := r.ConnectionCandidates("labvm4")
	want := []string{"lab04", "lab4"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ConnectionCandidates(labvm4) = %v, want %v", got, want)
	}
	if got := r.ConnectionCandidates("ptvnc4"); got != nil {
		t.Errorf("ConnectionCandidates(ptvnc4) = %v, want nil", got)
	}
}

func TestMatchesContainer(t *testing.T) {
	r := Default()

	tests := []struct {
		connection string
		container  string
		want       bool
	}{
		{"pt01", "ptvnc1", true},
		{"pt1", "ptvnc1", true},
		{"pt01", "ptvnc01", true},
		{"pt10", "ptvnc10", true},
		{"pt010", "ptvnc10", false},
		{"pt-lab", "ptvnc-lab", true},
		{"pt02", "ptvnc1", false},
		{"pt01", "web1", false},
	}

	for _, tt := range tests {
		t.Run(tt.connection+"/"+tt.container, func(t *testing.T) {
			if got := r.MatchesContainer(tt.connection, tt.container); got != tt.want {
				t.Errorf("MatchesContainer(%q, %q) = %v, want %v", tt.connection, tt.container, got, tt.want)
			}
		})
	}
}

func TestValidateContainerName(t *testing.T) {
	r := Default()

	tests := []struct {
		name    string
		wantErr bool
		errMsg  string
	}{
		{"ptvnc1", false, ""},
		{"ptvnc-lab01", false, ""},
		{"ptvnc12345", false, ""},
		{"ptvnc_A-b", false, ""},
		{"", true, "empty"},
		{"ptvnc", true, "suffix"},
		{"web1", true, "must start with"},
		{"ptvnc lab", true, "invalid container name suffix"},
		{"ptvnc1;rm", true, "invalid container name suffix"},
		{"ptvnc/1", true, "invalid container name suffix"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.ValidateContainerName(tt.name)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateContainerName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
				return
			}
			if tt.wantErr && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("ValidateContainerName(%q) error = %q, want containing %q", tt.name, err.Error(), tt.errMsg)
			}
		})
	}
}

func TestNumericSuffix(t *testing.T) {
	r := Default()

	tests := []struct {
		name   string
		want   int
		wantOK bool
	}{
		{"ptvnc1", 1, true},
		{"ptvnc007", 7, true},
		{"ptvnc-1", 0, false},
		{"ptvnc+1", 0, false},
		{"ptvnc", 0, false},
		{"web3", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.NumericSuffix(tt.name)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("NumericSuffix(%q) = (%d, %v), want (%d, %v)", tt.name, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestNextContainerName(t *testing.T) {
	r := Default()

	tests := []struct {
		name     string
		existing []string
		want     string
	}{
		{"empty", nil, "ptvnc1"},
		{"sequential", []string{"ptvnc1", "ptvnc2"}, "ptvnc3"},
		{"gap", []string{"ptvnc1", "ptvnc7"}, "ptvnc8"},
		{"padded", []string{"ptvnc09"}, "ptvnc10"},
		{"ignores non-numeric", []string{"ptvnc-lab", "ptvnc2"}, "ptvnc3"},
		{"ignores foreign", []string{"web9", "ptvnc1"}, "ptvnc2"},
		{"ignores overflowing suffix", []string{"ptvnc99999999999999999999", "ptvnc4"}, "ptvnc5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.NextContainerName(tt.existing); got != tt.want {
				t.Errorf("NextContainerName(%v) = %q, want %q", tt.existing, got, tt.want)
			}
		})
	}
}

func TestRule_String(t *testing.T) {
	if RulePadded.String() != "padded" || RuleUnpadded.String() != "unpadded" || RuleVerbatim.String() != "verbatim" {
		t.Error("unexpected Rule.String() output")
	}
}
