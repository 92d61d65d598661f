package excel

import (
	"testing"

	"surveylens/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

func workbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "会社名"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "総合満足度"))
	require.NoError(t, f.SetCellValue("Sheet1", "C1", "回答済"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "A社"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 4))
	require.NoError(t, f.SetCellBool("Sheet1", "C2", true))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
		code string
	}{
		{"csv", []byte("a,b\n1,2\n"), FormatCSV, ""},
		{"xlsx", workbook(t), FormatXLSX, ""},
		{"empty", []byte("  \n"), "", errors.CodeEmptyGrid},
		{"legacy xls", []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1, 0, 0, 0, 0}, "", errors.CodeUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFormat(tt.data)
			if tt.code != "" {
				require.Error(t, err)
				assert.Equal(t, tt.code, errors.GetCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadExcel(t *testing.T) {
	r := NewDataReader(nil)

	grid, err := r.Read(workbook(t), ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Sheet1", grid.SheetName)
	assert.Equal(t, FormatXLSX, grid.Format)
	require.Len(t, grid.Rows, 2)
	assert.Equal(t, []any{"会社名", "総合満足度", "回答済"}, grid.Rows[0])
	assert.Equal(t, []any{"A社", 4.0, true}, grid.Rows[1])

	_, err = r.Read(workbook(t), ReadOptions{SheetName: "回答"})
	assert.Equal(t, errors.CodeSheetNotFound, errors.GetCode(err))
}

func TestReadCSV(t *testing.T) {
	r := NewDataReader(nil)

	t.Run("bom and ragged rows", func(t *testing.T) {
		data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("会社名,職種\nA社\n,営業\n")...)
		grid, err := r.Read(data, ReadOptions{SheetName: "ignored"})
		require.NoError(t, err)
		assert.Equal(t, "CSV", grid.SheetName)
		assert.Equal(t, [][]any{
			{"会社名", "職種"},
			{"A社"},
			{nil, "営業"},
		}, grid.Rows)
	})

	t.Run("shift_jis", func(t *testing.T) {
		encoded, _, err := transform.Bytes(japanese.ShiftJIS.NewEncoder(), []byte("会社名,性別\nB社,女性\n"))
		require.NoError(t, err)
		grid, err := r.Read(encoded, ReadOptions{})
		require.NoError(t, err)
		assert.Equal(t, []any{"B社", "女性"}, grid.Rows[1])
	})

	t.Run("empty", func(t *testing.T) {
		_, err := r.Read(nil, ReadOptions{})
		assert.Equal(t, errors.CodeEmptyGrid, errors.GetCode(err))
	})
}

func TestIsDateNumFmt(t *testing.T) {
	tests := map[string]bool{
		"yyyy/mm/dd":        true,
		"[$-ja-JP]ge年m月d日": true,
		"h:mm":              false,
		"0.00":              false,
		`"y"0`:              false,
		"[Red]0":            false,
	}
	for format, want := range tests {
		assert.Equal(t, want, isDateNumFmt(format), format)
	}
}
