package fields

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/a3tai/mcp-pdf-merger/internal/pdf/object"
)

// DefaultAppearance is the /DA written into the merged AcroForm
const DefaultAppearance = "/Helv 0 Tf 0 g "

const defaultFontSize = 12.0

// textAppearance builds the normal appearance of a single-line text widget
func textAppearance(widget *object.Dictionary, da string, quadding int64, value string, resources *object.Dictionary) *object.Stream {
	fontName, fontSize, color := parseDA(da)
	if fontName == "" {
		fontName = "Helv"
	}
	if fontSize == 0 {
		fontSize = defaultFontSize
	}

	width, height := rectSize(widget.GetArray("Rect"))
	text := object.WinAnsi(value)

	var buf bytes.Buffer
	buf.WriteString("/Tx BMC\nq\n")
	fmt.Fprintf(&buf, "1 1 %s %s re W n\n", num(width-2), num(height-2))
	fmt.Fprintf(&buf, "BT\n/%s %s Tf\n", fontName, num(fontSize))
	writeColor(&buf, color)

	textWidth := float64(len(text)) * fontSize * 0.5
	x := 2.0
	switch quadding {
	case 1:
		x = (width - textWidth) / 2
	case 2:
		x = width - textWidth - 2
	}
	y := (height - fontSize) / 2
	if y < 2 {
		y = 2
	}
	fmt.Fprintf(&buf, "%s %s Td\n", num(x), num(y))
	buf.Write(object.EscapeLiteral([]byte(text)))
	buf.WriteString(" Tj\nET\nQ\nEMC\n")

	stream := object.NewStream(buf.Bytes())
	stream.Dict.Set("Type", object.NewName("XObject"))
	stream.Dict.Set("Subtype", object.NewName("Form"))
	stream.Dict.Set("BBox", object.NewArray(object.Int(0), object.Int(0), object.Real(width), object.Real(height)))
	if resources != nil {
		res := object.NewDictionary()
		if fonts := resources.Get("Font"); fonts != nil {
			res.Set("Font", fonts)
		}
		stream.Dict.Set("Resources", res)
	}
	return stream
}

func rectSize(rect *object.Array) (float64, float64) {
	if rect == nil || rect.Len() != 4 {
		return 0, 0
	}
	v := make([]float64, 4)
	for i := range v {
		if n, ok := rect.Get(i).(*object.Number); ok {
			v[i] = n.Float()
		}
	}
	w, h := v[2]-v[0], v[3]-v[1]
	if w < 0 {
		w = -w
	}
	if h < 0 {
		h = -h
	}
	return w, h
}

func parseDA(da string) (fontName string, fontSize float64, color []float64) {
	parts := strings.Fields(da)
	floats := func(from, n int) []float64 {
		out := make([]float64, 0, n)
		for _, p := range parts[from : from+n] {
			f, err := strconv.ParseFloat(p, 64)
			if err != nil {
				return nil
			}
			out = append(out, f)
		}
		return out
	}
	for i, p := range parts {
		switch {
		case strings.HasPrefix(p, "/"):
			fontName = p[1:]
			if i+1 < len(parts) {
				fontSize, _ = strconv.ParseFloat(parts[i+1], 64)
			}
		case p == "g" && i >= 1:
			color = floats(i-1, 1)
		case p == "rg" && i >= 3:
			color = floats(i-3, 3)
		case p == "k" && i >= 4:
			color = floats(i-4, 4)
		}
	}
	return
}

func writeColor(buf *bytes.Buffer, color []float64) {
	switch len(color) {
	case 1:
		fmt.Fprintf(buf, "%s g\n", num(color[0]))
	case 3:
		fmt.Fprintf(buf, "%s %s %s rg\n", num(color[0]), num(color[1]), num(color[2]))
	case 4:
		fmt.Fprintf(buf, "%s %s %s %s k\n", num(color[0]), num(color[1]), num(color[2]), num(color[3]))
	}
}

func num(f float64) string {
	return object.Real(f).String()
}
