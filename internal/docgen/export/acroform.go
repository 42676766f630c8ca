package export

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dealerdesk/dealerdesk/internal/docgen"
	"github.com/dealerdesk/dealerdesk/internal/sales"
)

// TextField mirrors one visible text run as an invisible fillable field.
// Rect is [llx, lly, urx, ury] in PDF points, page-relative.
type TextField struct {
	Name  string
	Value string
	Page  int
	Rect  [4]float64
}

// ErrUnsupportedPDF indicates the document does not use a classic xref
// table; injection degrades to a pass-through in that case.
var ErrUnsupportedPDF = errors.New("acroform: unsupported pdf structure")

// A4 page box in points.
const (
	pageWidthPt  = 595.28
	pageHeightPt = 841.89
)

// invoiceFieldBoxes anchors each mirrored field at the coordinates the
// invoice template lays it out at. Origin is the bottom-left corner.
var invoiceFieldBoxes = map[sales.FieldKey][4]float64{
	sales.FieldBuyerName: {150, pageHeightPt - 300, 420, pageHeightPt - 282},
	sales.FieldBuyerID:   {150, pageHeightPt - 322, 420, pageHeightPt - 304},
	sales.FieldBrand:     {60, pageHeightPt - 420, 200, pageHeightPt - 402},
	sales.FieldModel:     {202, pageHeightPt - 420, 320, pageHeightPt - 402},
	sales.FieldVIN:       {330, pageHeightPt - 420, 470, pageHeightPt - 402},
	sales.FieldSoldPrice: {475, pageHeightPt - 420, 560, pageHeightPt - 402},
}

// CollectInvoiceFields gathers the visible text runs of an invoice
// projection with their page-relative boxes.
func CollectInvoiceFields(p docgen.Projection) []TextField {
	keys := []sales.FieldKey{
		sales.FieldBuyerName, sales.FieldBuyerID,
		sales.FieldBrand, sales.FieldModel, sales.FieldVIN,
	}
	var fields []TextField
	for _, key := range keys {
		value := strings.TrimSpace(p.FieldValue(key))
		if value == "" {
			continue
		}
		fields = append(fields, TextField{
			Name:  string(key),
			Value: value,
			Page:  0,
			Rect:  invoiceFieldBoxes[key],
		})
	}
	fields = append(fields, TextField{
		Name:  string(sales.FieldSoldPrice),
		Value: docgen.FormatMoney(p.SoldPrice, 2),
		Page:  0,
		Rect:  invoiceFieldBoxes[sales.FieldSoldPrice],
	})
	return fields
}

var (
	objRe     = regexp.MustCompile(`(?s)(\d+) 0 obj\b(.*?)endobj`)
	trailerRe = regexp.MustCompile(`(?s)trailer\s*<<(.*?)>>`)
	sizeRe    = regexp.MustCompile(`/Size\s+(\d+)`)
	rootRe    = regexp.MustCompile(`/Root\s+(\d+)\s+0\s+R`)
	annotsRe  = regexp.MustCompile(`/Annots\s*\[`)
)

type pdfObject struct {
	num  int
	body string
}

// InjectFields appends an incremental update carrying an AcroForm with the
// given invisible text fields. The visual appearance of the document is
// unchanged. PDFs using cross-reference streams are not supported.
func InjectFields(pdf []byte, fields []TextField) ([]byte, error) {
	if len(fields) == 0 {
		return pdf, nil
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF-")) {
		return nil, ErrUnsupportedPDF
	}
	trailerMatch := lastMatch(trailerRe, pdf)
	if trailerMatch == nil {
		return nil, ErrUnsupportedPDF
	}
	trailerBody := string(trailerMatch[1])
	sizeM := sizeRe.FindStringSubmatch(trailerBody)
	rootM := rootRe.FindStringSubmatch(trailerBody)
	if sizeM == nil || rootM == nil {
		return nil, ErrUnsupportedPDF
	}
	size, _ := strconv.Atoi(sizeM[1])
	rootNum, _ := strconv.Atoi(rootM[1])

	prevStartXref := lastStartXref(pdf)
	if prevStartXref < 0 {
		return nil, ErrUnsupportedPDF
	}

	objects := parseObjects(pdf)
	pages := pageObjects(objects)
	if len(pages) == 0 {
		return nil, ErrUnsupportedPDF
	}
	root, ok := objects[rootNum]
	if !ok {
		return nil, ErrUnsupportedPDF
	}

	// Allocate numbers: the shared empty appearance first, then the
	// widgets, then the AcroForm dictionary. The empty appearance stream
	// plus the invisible text rendering mode (3 Tr) keep viewers from
	// painting the field values over the rasterized page.
	next := size
	apNum := next
	next++
	newObjects := []pdfObject{{
		num:  apNum,
		body: " << /Type /XObject /Subtype /Form /BBox [0 0 0 0] /Length 0 >>\nstream\nendstream\n",
	}}
	widgetRefs := make([][]string, len(pages))
	widgets := 0
	for _, f := range fields {
		if f.Page < 0 || f.Page >= len(pages) {
			continue
		}
		body := fmt.Sprintf(
			" << /Type /Annot /Subtype /Widget /FT /Tx /T (%s) /V (%s) /Rect [%s %s %s %s] /F 4 /Ff 1 /DA (/Helv 0 Tf 3 Tr) /MK << >> /AP << /N %d 0 R >> /P %d 0 R >>\n",
			escapePDFString(f.Name), escapePDFString(f.Value),
			formatPt(f.Rect[0]), formatPt(f.Rect[1]), formatPt(f.Rect[2]), formatPt(f.Rect[3]),
			apNum, pages[f.Page].num,
		)
		newObjects = append(newObjects, pdfObject{num: next, body: body})
		widgetRefs[f.Page] = append(widgetRefs[f.Page], fmt.Sprintf("%d 0 R", next))
		widgets++
		next++
	}
	if widgets == 0 {
		return pdf, nil
	}

	var allRefs []string
	for _, refs := range widgetRefs {
		allRefs = append(allRefs, refs...)
	}
	acroNum := next
	next++
	newObjects = append(newObjects, pdfObject{
		num:  acroNum,
		body: fmt.Sprintf(" << /Fields [%s] /DA (/Helv 0 Tf 3 Tr) >>\n", strings.Join(allRefs, " ")),
	})

	// Updated page dictionaries gain the widget annotations.
	var updated []pdfObject
	for i, page := range pages {
		if len(widgetRefs[i]) == 0 {
			continue
		}
		body, err := addAnnots(page.body, widgetRefs[i])
		if err != nil {
			return nil, err
		}
		updated = append(updated, pdfObject{num: page.num, body: body})
	}

	// Updated catalog points at the AcroForm.
	rootBody, err := addDictEntry(root.body, fmt.Sprintf("/AcroForm %d 0 R", acroNum))
	if err != nil {
		return nil, err
	}
	updated = append(updated, pdfObject{num: rootNum, body: rootBody})

	return appendIncrementalUpdate(pdf, updated, newObjects, next, rootNum, prevStartXref), nil
}

func appendIncrementalUpdate(pdf []byte, updated, added []pdfObject, newSize, rootNum int, prevStartXref int64) []byte {
	out := bytes.NewBuffer(append([]byte(nil), pdf...))
	if out.Len() > 0 && pdf[len(pdf)-1] != '\n' {
		out.WriteByte('\n')
	}

	offsets := make(map[int]int)
	writeObj := func(o pdfObject) {
		offsets[o.num] = out.Len()
		fmt.Fprintf(out, "%d 0 obj%sendobj\n", o.num, o.body)
	}
	for _, o := range updated {
		writeObj(o)
	}
	for _, o := range added {
		writeObj(o)
	}

	nums := make([]int, 0, len(offsets))
	for num := range offsets {
		nums = append(nums, num)
	}
	sort.Ints(nums)

	xrefStart := out.Len()
	out.WriteString("xref\n")
	for i := 0; i < len(nums); {
		j := i
		for j+1 < len(nums) && nums[j+1] == nums[j]+1 {
			j++
		}
		fmt.Fprintf(out, "%d %d\n", nums[i], j-i+1)
		for k := i; k <= j; k++ {
			fmt.Fprintf(out, "%010d 00000 n \n", offsets[nums[k]])
		}
		i = j + 1
	}
	fmt.Fprintf(out, "trailer\n<< /Size %d /Root %d 0 R /Prev %d >>\nstartxref\n%d\n%%%%EOF\n",
		newSize, rootNum, prevStartXref, xrefStart)
	return out.Bytes()
}

func parseObjects(pdf []byte) map[int]pdfObject {
	objects := make(map[int]pdfObject)
	for _, m := range objRe.FindAllSubmatch(pdf, -1) {
		num, err := strconv.Atoi(string(m[1]))
		if err != nil {
			continue
		}
		objects[num] = pdfObject{num: num, body: string(m[2])}
	}
	return objects
}

func pageObjects(objects map[int]pdfObject) []pdfObject {
	var pages []pdfObject
	for _, o := range objects {
		body := strings.ReplaceAll(o.body, " ", "")
		if strings.Contains(body, "/Type/Page") && !strings.Contains(body, "/Type/Pages") {
			pages = append(pages, o)
		}
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].num < pages[j].num })
	return pages
}

func addAnnots(body string, refs []string) (string, error) {
	joined := strings.Join(refs, " ")
	if loc := annotsRe.FindStringIndex(body); loc != nil {
		// Merge into the existing direct array.
		return body[:loc[1]] + joined + " " + body[loc[1]:], nil
	}
	if strings.Contains(body, "/Annots") {
		// Indirect array reference; rewriting it is not supported.
		return "", ErrUnsupportedPDF
	}
	return addDictEntry(body, "/Annots ["+joined+"]")
}

func addDictEntry(body, entry string) (string, error) {
	idx := strings.LastIndex(body, ">>")
	if idx < 0 {
		return "", ErrUnsupportedPDF
	}
	return body[:idx] + " " + entry + " " + body[idx:], nil
}

func lastStartXref(pdf []byte) int64 {
	idx := bytes.LastIndex(pdf, []byte("startxref"))
	if idx < 0 {
		return -1
	}
	rest := pdf[idx+len("startxref"):]
	fieldsOf := strings.Fields(string(rest))
	if len(fieldsOf) == 0 {
		return -1
	}
	v, err := strconv.ParseInt(fieldsOf[0], 10, 64)
	if err != nil {
		return -1
	}
	return v
}

func lastMatch(re *regexp.Regexp, data []byte) [][]byte {
	all := re.FindAllSubmatch(data, -1)
	if len(all) == 0 {
		return nil
	}
	return all[len(all)-1]
}

func escapePDFString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "(", `\(`)
	s = strings.ReplaceAll(s, ")", `\)`)
	return s
}

func formatPt(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
