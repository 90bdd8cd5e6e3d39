package source

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	pdferrors "github.com/a3tai/mcp-pdf-merger/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-merger/internal/pdf/object"
)

// Open reads the PDF file at path
func Open(path string) (*Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeIO, "failed to open PDF file", err).WithFile(path)
	}
	defer file.Close()

	return Load(file, path)
}

// Load reads a PDF from rs. name labels the document in errors and logs.
func Load(rs io.ReadSeeker, name string) (*Document, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(rs, conf)
	if err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeSourceIntegrity, "failed to read PDF context", err).WithFile(name)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeSourceIntegrity, "failed to ensure page count", err).WithFile(name)
	}
	if ctx.Root == nil {
		return nil, pdferrors.NewPDFError(pdferrors.ErrorTypeSourceIntegrity, "document has no catalog").WithFile(name)
	}

	d := newDocument(name, func(id object.ObjectID) (object.Object, error) {
		obj, err := ctx.Dereference(types.IndirectRef{
			ObjectNumber:     types.Integer(id.Number),
			GenerationNumber: types.Integer(id.Generation),
		})
		if err != nil {
			return nil, pdferrors.WrapError(pdferrors.ErrorTypeSourceIntegrity, "failed to load object", err).
				WithObject(id.Number, id.Generation).WithFile(name)
		}
		converted, err := convert(obj)
		if err != nil {
			return nil, fmt.Errorf("object %s: %w", id, err)
		}
		return converted, nil
	})
	d.root = object.Ref(int(ctx.Root.ObjectNumber), int(ctx.Root.GenerationNumber))
	if ctx.E != nil {
		p := int32(ctx.E.P)
		d.perms = &p
	}
	for n := range ctx.Table {
		if n >= d.next {
			d.next = n + 1
		}
	}
	return d, nil
}

// convert translates a pdfcpu object into the engine's object model.
// Stream payloads stay encoded; their filters travel with the dictionary.
func convert(obj types.Object) (object.Object, error) {
	switch v := obj.(type) {
	case nil:
		return &object.Null{}, nil
	case types.Boolean:
		return &object.Bool{Value: bool(v)}, nil
	case types.Integer:
		return object.Int(int64(v)), nil
	case types.Float:
		return object.Real(float64(v)), nil
	case types.Name:
		return object.NewName(string(v)), nil
	case types.StringLiteral:
		raw, err := types.Unescape(string(v))
		if err != nil {
			return nil, pdferrors.WrapError(pdferrors.ErrorTypeSourceIntegrity, "invalid string literal", err)
		}
		return &object.String{Value: string(raw)}, nil
	case types.HexLiteral:
		raw, err := v.Bytes()
		if err != nil {
			return nil, pdferrors.WrapError(pdferrors.ErrorTypeSourceIntegrity, "invalid hex string", err)
		}
		return &object.String{Value: string(raw), IsHex: true}, nil
	case types.IndirectRef:
		return object.Ref(int(v.ObjectNumber), int(v.GenerationNumber)), nil
	case *types.IndirectRef:
		return object.Ref(int(v.ObjectNumber), int(v.GenerationNumber)), nil
	case types.Array:
		out := &object.Array{Elements: make([]object.Object, 0, len(v))}
		for _, elem := range v {
			c, err := convert(elem)
			if err != nil {
				return nil, err
			}
			out.Add(c)
		}
		return out, nil
	case types.Dict:
		return convertDict(v, false)
	case types.StreamDict:
		return convertStream(&v)
	case *types.StreamDict:
		return convertStream(v)
	default:
		return nil, pdferrors.NewPDFErrorf(pdferrors.ErrorTypeSourceIntegrity, "unsupported object %T", obj)
	}
}

// convertDict copies a pdfcpu dictionary. types.Dict is a map and carries no
// key order, so keys are sorted to make the output reproducible.
func convertDict(d types.Dict, stream bool) (*object.Dictionary, error) {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := object.NewDictionary()
	for _, k := range keys {
		v := d[k]
		if v == nil || (stream && k == "Length") {
			continue
		}
		c, err := convert(v)
		if err != nil {
			return nil, err
		}
		out.Set(k, c)
	}
	return out, nil
}

func convertStream(sd *types.StreamDict) (*object.Stream, error) {
	dict, err := convertDict(sd.Dict, true)
	if err != nil {
		return nil, err
	}
	data := sd.Raw
	if data == nil && sd.Content != nil {
		data = sd.Content
		dict.Remove("Filter")
		dict.Remove("DecodeParms")
	}
	return &object.Stream{Dict: dict, Data: data}, nil
}
