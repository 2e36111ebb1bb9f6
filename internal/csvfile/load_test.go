package csvfile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/dataclean/internal/core"
)

const idspSample = `week,state,district,disease,cases,deaths,reporting_date,status
1,Kerala,Thrissur,Dengue,10,0,05-01-2023,Under Control
2,Kerala,Ernakulam,Cholera,4,,12-01-2023,Under Surveillance
3, Assam ,Cachar,Measles,"1,200",3,NA,Under Control
`

func TestRead(t *testing.T) {
	ds, info, err := Read(strings.NewReader(idspSample), "idsp", Options{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if info.Encoding != UTF8 {
		t.Errorf("encoding = %q, want utf-8", info.Encoding)
	}
	if info.Rows != 3 || info.Columns != 8 {
		t.Errorf("shape = %dx%d, want 3x8", info.Rows, info.Columns)
	}
	if info.Bytes != int64(len(idspSample)) {
		t.Errorf("bytes = %d, want %d", info.Bytes, len(idspSample))
	}
	if ds.Name != "idsp" {
		t.Errorf("name = %q", ds.Name)
	}

	wantTypes := map[string]core.FieldType{
		"week":           core.FieldNumeric,
		"state":          core.FieldText,
		"cases":          core.FieldNumeric,
		"deaths":         core.FieldNumeric,
		"reporting_date": core.FieldText,
	}
	for col, want := range wantTypes {
		c, ok := ds.Column(col)
		if !ok {
			t.Errorf("missing column %q", col)
			continue
		}
		if c.Type != want {
			t.Errorf("column %q type = %v, want %v", col, c.Type, want)
		}
	}

	if got := ds.Rows[2].Get("cases"); !got.Equal(core.Number(1200)) {
		t.Errorf("cases = %v, want 1200", got)
	}
	if got := ds.Rows[1].Get("deaths"); !got.IsNull() {
		t.Errorf("empty deaths = %v, want null", got)
	}
	if got := ds.Rows[2].Get("reporting_date"); !got.IsNull() {
		t.Errorf("NA date = %v, want null", got)
	}
	if got := ds.Rows[2].Get("state"); !got.Equal(core.Text("Assam")) {
		t.Errorf("state = %q, want trimmed", got.String())
	}
}

func TestRead_Header(t *testing.T) {
	input := " a ,b,a,,a\n1,2,3,4,5\n"
	ds, _, err := Read(strings.NewReader(input), "x", Options{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := []string{"a", "b", "a.1", "Unnamed: 3", "a.2"}
	got := ds.ColumnNames()
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("columns = %v, want %v", got, want)
	}
}

func TestRead_RaggedRows(t *testing.T) {
	t.Run("short rows padded with nulls", func(t *testing.T) {
		ds, _, err := Read(strings.NewReader("a,b,c\n1,2\n"), "x", Options{})
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if !ds.Rows[0].Get("c").IsNull() {
			t.Errorf("c = %v, want null", ds.Rows[0].Get("c"))
		}
		if _, ok := ds.Rows[0]["c"]; !ok {
			t.Error("padded cell missing from row")
		}
	})

	t.Run("long rows rejected", func(t *testing.T) {
		_, _, err := Read(strings.NewReader("a,b\n1,2,3\n"), "x", Options{})
		if err == nil || !strings.Contains(err.Error(), "invalid csv") {
			t.Errorf("err = %v, want invalid csv", err)
		}
		if core.MapError(err).Code != "FILE002" {
			t.Errorf("code = %q, want FILE002", core.MapError(err).Code)
		}
	})
}

func TestRead_Empty(t *testing.T) {
	for _, input := range []string{"", "\n\n"} {
		_, _, err := Read(strings.NewReader(input), "x", Options{})
		if !errors.Is(err, ErrEmptyFile) {
			t.Errorf("Read(%q) err = %v, want ErrEmptyFile", input, err)
		}
	}

	ds, _, err := Read(strings.NewReader("a,b\n"), "x", Options{})
	if err != nil {
		t.Fatalf("header only: %v", err)
	}
	if ds.Len() != 0 || len(ds.Columns) != 2 {
		t.Errorf("header only: %d rows, %d columns", ds.Len(), len(ds.Columns))
	}
}

func TestRead_Latin1(t *testing.T) {
	input := []byte("city,pop\nS\xE3o Paulo,12\n")
	ds, info, err := Read(strings.NewReader(string(input)), "cities", Options{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if info.Encoding != Latin1 {
		t.Errorf("encoding = %q, want latin-1", info.Encoding)
	}
	if got := ds.Rows[0].Get("city").String(); got != "São Paulo" {
		t.Errorf("city = %q", got)
	}
}

func TestRead_PinnedTypes(t *testing.T) {
	opts := Options{Types: map[string]core.FieldType{"code": core.FieldText}}
	ds, _, err := Read(strings.NewReader("code,flag\n007,true\n010,false\n"), "x", opts)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got := ds.Rows[0].Get("code"); !got.Equal(core.Text("007")) {
		t.Errorf("code = %v, want text 007", got)
	}
	if c, _ := ds.Column("flag"); c.Type != core.FieldBool {
		t.Errorf("flag type = %v, want bool", c.Type)
	}
}

func TestInferType(t *testing.T) {
	tests := []struct {
		name  string
		cells []string
		want  core.FieldType
	}{
		{name: "numbers", cells: []string{"1", "2.5", "-3"}, want: core.FieldNumeric},
		{name: "numbers with nulls", cells: []string{"1", "", "NaN"}, want: core.FieldNumeric},
		{name: "mixed", cells: []string{"1", "two"}, want: core.FieldText},
		{name: "booleans", cells: []string{"True", "false"}, want: core.FieldBool},
		{name: "yes/no stays text", cells: []string{"yes", "no"}, want: core.FieldText},
		{name: "dates stay text", cells: []string{"2023-01-05"}, want: core.FieldText},
		{name: "all null", cells: []string{"", "NA"}, want: core.FieldText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := make([][]string, len(tt.cells))
			for i, c := range tt.cells {
				records[i] = []string{c}
			}
			if got := inferType(records, 0); got != tt.want {
				t.Errorf("inferType = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "IDSP.csv")
	if err := os.WriteFile(path, []byte(idspSample), 0o644); err != nil {
		t.Fatal(err)
	}

	ds, _, err := LoadFile(path, Options{})
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if ds.Name != "IDSP" || ds.Len() != 3 {
		t.Errorf("got %q with %d rows", ds.Name, ds.Len())
	}

	_, _, err = LoadFile(filepath.Join(t.TempDir(), "missing.csv"), Options{})
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file err = %v", err)
	}
}
