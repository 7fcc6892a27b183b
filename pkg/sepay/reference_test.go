package sepay_test

import (
	"testing"
	"time"

	"travel-booking/pkg/sepay"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTransferReference(t *testing.T) {
	now := time.UnixMilli(1700000001234)

	t.Run("kind code, id tail and clock suffix", func(t *testing.T) {
		ref := sepay.BuildTransferReference("TUR", "123e4567-e89b-12d3-a456-426614174000", now)
		assert.Equal(t, "SEVQR TUR1740001234", ref)
	})

	t.Run("lowercase input is uppercased", func(t *testing.T) {
		ref := sepay.BuildTransferReference("htl", "123e4567-e89b-12d3-a456-4266141abcde", now)
		assert.Equal(t, "SEVQR HTL1ABCDE1234", ref)
	})

	t.Run("suffix is zero padded", func(t *testing.T) {
		ref := sepay.BuildTransferReference("FLT", "123e4567-e89b-12d3-a456-426614174000", time.UnixMilli(1700000000007))
		assert.Equal(t, "SEVQR FLT1740000007", ref)
	})

	t.Run("extractable from its own output", func(t *testing.T) {
		ref := sepay.BuildTransferReference("BKG", "123e4567-e89b-12d3-a456-426614174000", now)
		got, ok := sepay.ExtractReference("CK " + ref + " thanh toan")
		assert.True(t, ok)
		assert.Equal(t, ref, got)
	})
}

func TestBuildQRCodeURL(t *testing.T) {
	t.Run("default host", func(t *testing.T) {
		got := sepay.BuildQRCodeURL("", "0123456789", "MBBank", 150000, "SEVQR TUR1740001234")
		assert.Equal(t,
			"https://qr.sepay.vn/img?acc=0123456789&bank=MBBank&amount=150000&des=SEVQR%20TUR1740001234&template=compact",
			got)
	})

	t.Run("custom host", func(t *testing.T) {
		got := sepay.BuildQRCodeURL("qr.example.test", "1", "VCB", 1, "SEVQR A1")
		assert.Equal(t, "https://qr.example.test/img?acc=1&bank=VCB&amount=1&des=SEVQR%20A1&template=compact", got)
	})
}

func TestExtractReference(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		found   bool
	}{
		{"embedded in text", "NGUYEN VAN A chuyen tien SEVQR TUR1740001234 FT2401", "SEVQR TUR1740001234", true},
		{"case insensitive", "sevqr htl1abcde0001", "sevqr htl1abcde0001", true},
		{"mixed case token kept", "... SEVQR HTL123abc99 ...", "SEVQR HTL123abc99", true},
		{"multiple spaces", "SEVQR   FLT1740000007", "SEVQR FLT1740000007", true},
		{"no separator", "NGUYEN VAN A SEVQRHTL123ABC9912 chuyen tien", "SEVQR HTL123ABC9912", true},
		{"dotted bank format", "MBVCB.123.SEVQR.TURABCDEF1234.CT tu", "SEVQR TURABCDEF1234", true},
		{"dash and underscore", "IBFT SEVQR-_BKG1740001234", "SEVQR BKG1740001234", true},
		{"missing", "thanh toan don hang", "", false},
		{"prefix only", "SEVQR ", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := sepay.ExtractReference(tt.content)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeReference(t *testing.T) {
	assert.Equal(t, "SEVQRTUR1740001234", sepay.NormalizeReference("sevqr  tur1740001234"))
	assert.Equal(t, "SEVQRTUR1740001234", sepay.NormalizeReference(" SEVQR TUR1740001234 "))
	assert.Equal(t,
		sepay.NormalizeReference("SEVQR TUR1740001234"),
		sepay.NormalizeReference("SEVQR\tTUR1740001234"))

	t.Run("collapsed and spaced forms agree", func(t *testing.T) {
		spaced, ok := sepay.ExtractReference("CK SEVQR TUR1740001234")
		require.True(t, ok)
		collapsed, ok := sepay.ExtractReference("CK.SEVQRTUR1740001234.FT24")
		require.True(t, ok)
		assert.Equal(t, sepay.NormalizeReference(spaced), sepay.NormalizeReference(collapsed))
	})
}
