package server

import (
	"mime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportDisposition(t *testing.T) {
	cases := []struct {
		workspace string
		filename  string
	}{
		{"ws-1", "billing-history-ws-1.xlsx"},
		{"acme_prod.eu", "billing-history-acme_prod.eu.xlsx"},
		{"ws\"; filename=evil.exe", "billing-history-ws___filename_evil.exe.xlsx"},
		{"ws\r\nSet-Cookie: x=1", "billing-history-ws__Set-Cookie__x_1.xlsx"},
	}

	for _, tc := range cases {
		t.Run(tc.filename, func(t *testing.T) {
			header := exportDisposition(tc.workspace)
			assert.NotContains(t, header, "\r")
			assert.NotContains(t, header, "\n")

			disposition, params, err := mime.ParseMediaType(header)
			require.NoError(t, err)
			assert.Equal(t, "attachment", disposition)
			assert.Equal(t, tc.filename, params["filename"])
		})
	}
}
