package corpus

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"sort"
)

// A Format describes one way of writing a corpus to disk.
type Format struct {
	Suffix    string
	Extension string
	Writer    func(f ExportForm) string
}

// Formats maps the accepted values of the writetofile "format" field.
var Formats = map[string]Format{
	"transcriptions": {
		Suffix:    "_transcriptions",
		Extension: "txt",
		Writer: func(f ExportForm) string {
			return f.Transcription + "\n"
		},
	},
	"treebank": {
		Suffix:    "_tb",
		Extension: "tb",
		Writer: func(f ExportForm) string {
			category := f.Category
			if category == "" {
				category = "TOP"
			}
			return fmt.Sprintf("(%s %s)\n", category, f.Transcription)
		},
	},
}

// FormatNames returns the accepted format names, sorted for stable payloads.
func FormatNames() []string {
	names := make([]string, 0, len(Formats))
	for name := range Formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// gzipFile compresses path to path.gz, leaving the original in place.
func gzipFile(path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}
	defer dst.Close()

	zw := gzip.NewWriter(dst)
	if _, err := io.Copy(zw, src); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}
