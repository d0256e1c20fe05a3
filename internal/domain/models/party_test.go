package models

import "testing"

func TestDebtorIDFor(t *testing.T) {
	tests := []struct {
		sortCode string
		account  string
		want     string
	}{
		{"12-34-56", "87654321", "DBT-123456-87654321"},
		{"123456", "00000001", "DBT-123456-00000001"},
		{"", "42", "DBT--42"},
	}

	for _, tt := range tests {
		if got := DebtorIDFor(tt.sortCode, tt.account); got != tt.want {
			t.Errorf("DebtorIDFor(%q, %q) = %q, want %q", tt.sortCode, tt.account, got, tt.want)
		}
	}
}
