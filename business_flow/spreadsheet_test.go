package businessflow

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadExtension(t *testing.T) {
	assert.Equal(t, ExtXLSX, UploadExtension("materials.XLSX"))
	assert.Equal(t, ExtCSV, UploadExtension(" list.csv "))
	assert.Equal(t, "", UploadExtension("list.xls"))
	assert.Equal(t, "", UploadExtension("noext"))
}

func TestParseSpreadsheet(t *testing.T) {
	t.Run("xlsx drops header and blank rows", func(t *testing.T) {
		content := workbook(t,
			[]any{"재료명", "원가"},
			[]any{"보톡스", 120000},
			[]any{"", ""},
			[]any{"필러", "80,000원"},
		)

		rows, err := ParseSpreadsheet(bytes.NewReader(content), "materials.xlsx")
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, 2, rows[0].Number)
		assert.Equal(t, "보톡스", rows[0].Cell(0))
		assert.Equal(t, 3, rows[1].Number)
		assert.Equal(t, "80,000원", rows[1].Cell(1))
		assert.Equal(t, "", rows[1].Cell(7))
	})

	t.Run("csv with bom and ragged rows", func(t *testing.T) {
		data := "\xEF\xBB\xBF재료명,원가\n보톡스,120000\n필러\n"
		rows, err := ParseSpreadsheet(strings.NewReader(data), "materials.csv")
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "보톡스", rows[0].Cell(0))
		assert.Equal(t, "", rows[1].Cell(1))
	})

	t.Run("empty file fails", func(t *testing.T) {
		_, err := ParseSpreadsheet(strings.NewReader(""), "materials.csv")
		require.Error(t, err)
	})

	t.Run("garbage workbook fails", func(t *testing.T) {
		_, err := ParseSpreadsheet(strings.NewReader("not a zip"), "materials.xlsx")
		require.Error(t, err)
	})
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "120000", want: "120000"},
		{raw: "120,000원", want: "120000"},
		{raw: " 1,234.5 ", want: "1234.5"},
		{raw: "-500", want: "-500"},
		{raw: "abc", wantErr: true},
		{raw: "", wantErr: true},
		{raw: "1.2.3", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseAmount(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestSplitNames(t *testing.T) {
	assert.Equal(t, []string{"보톡스", "필러"}, SplitNames(" 보톡스 , ,필러,"))
	assert.Empty(t, SplitNames(""))
}
