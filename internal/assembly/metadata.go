package assembly

import (
	"fmt"
	"strings"
)

// Chapter marks one scene inside the output container.
type Chapter struct {
	Title        string
	StartSeconds float64
	EndSeconds   float64
}

// Metadata is the container-level metadata written during muxing.
type Metadata struct {
	Title    string
	Chapters []Chapter
}

// Render produces an ffmetadata document for piping to the muxer.
func (m *Metadata) Render() []byte {
	var b strings.Builder
	b.WriteString(";FFMETADATA1\n")
	if m.Title != "" {
		fmt.Fprintf(&b, "title=%s\n", escapeMetadata(m.Title))
	}
	for _, ch := range m.Chapters {
		b.WriteString("[CHAPTER]\n")
		b.WriteString("TIMEBASE=1/1000\n")
		fmt.Fprintf(&b, "START=%d\n", int64(ch.StartSeconds*1000))
		fmt.Fprintf(&b, "END=%d\n", int64(ch.EndSeconds*1000))
		fmt.Fprintf(&b, "title=%s\n", escapeMetadata(ch.Title))
	}
	return []byte(b.String())
}

var metadataEscaper = strings.NewReplacer(
	`\`, `\\`,
	"=", `\=`,
	";", `\;`,
	"#", `\#`,
	"\n", `\`+"\n",
)

func escapeMetadata(s string) string {
	return metadataEscaper.Replace(s)
}
