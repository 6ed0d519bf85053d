package services

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/klauspost/compress/zlib"
	"github.com/skip2/go-qrcode"

	"ticket-storefront/internal/models"
)

const (
	pageWidth  = 595
	pageHeight = 842
	pageMargin = 50

	qrPixels = 256
	qrPoints = 180
)

// PDFRenderer renders the ticket document of an order. Every ticket gets its
// own page with a scannable QR code.
type PDFRenderer struct {
	qrLevel qrcode.RecoveryLevel
}

// NewPDFRenderer creates a new PDF renderer
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{qrLevel: qrcode.Medium}
}

// RenderTickets renders the PDF. With nil info a single page explains that the
// tickets could not be loaded.
func (r *PDFRenderer) RenderTickets(order *models.Order, info *models.TicketInfo) ([]byte, error) {
	if order == nil {
		return nil, errors.New("order is required")
	}

	doc := newPDFBuilder()
	pagesID := doc.reserve()
	regular := doc.add([]byte("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>"))
	bold := doc.add([]byte("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica-Bold /Encoding /WinAnsiEncoding >>"))
	fonts := fmt.Sprintf("/Font << /F1 %d 0 R /F2 %d 0 R >>", regular, bold)

	var pages []int
	addPage := func(content *pageContent, imageID int) {
		resources := fonts
		if imageID > 0 {
			resources += fmt.Sprintf(" /XObject << /QR %d 0 R >>", imageID)
		}
		contentID := doc.add(streamObject("", content.Bytes()))
		pages = append(pages, doc.add([]byte(fmt.Sprintf(
			"<< /Type /Page /Parent %d 0 R /MediaBox [0 0 %d %d] /Resources << %s >> /Contents %d 0 R >>",
			pagesID, pageWidth, pageHeight, resources, contentID))))
	}

	if info == nil {
		content := r.header(order, nil)
		content.text("F2", 12, pageMargin, 640, "Je tickets konden niet worden geladen.")
		content.text("F1", 10, pageMargin, 620, "Neem contact met ons op en vermeld je bestelnummer. Je ontvangt je tickets dan alsnog.")
		addPage(content, 0)
	} else if len(info.Tickets) == 0 {
		content := r.header(order, info)
		content.text("F1", 12, pageMargin, 640, "Er zijn geen tickets gevonden voor deze bestelling.")
		addPage(content, 0)
	} else {
		ids := make([]string, 0, len(info.Tickets))
		for id := range info.Tickets {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for i, id := range ids {
			ticket := info.Tickets[id]
			content := r.header(order, info)
			content.text("F2", 14, pageMargin, 640, fmt.Sprintf("Ticket %d van %d", i+1, len(ids)))
			content.text("F1", 12, pageMargin, 620, ticket.TicketName)

			qrX := (pageWidth - qrPoints) / 2
			qrY := 380
			qrObject, err := r.qrImage(ticket.TicketCode)
			if err != nil {
				// placeholder box with the raw code
				content.rect(qrX, qrY, qrPoints, qrPoints)
				content.text("F1", 8, qrX+10, qrY+qrPoints/2, ticket.TicketCode)
				addPage(r.footer(content, ticket), 0)
				continue
			}

			content.image("QR", qrX, qrY, qrPoints, qrPoints)
			content.text("F2", 12, qrX, qrY-20, ShortTicketName(ticket.TicketName))
			addPage(r.footer(content, ticket), doc.add(qrObject))
		}
	}

	kids := make([]string, len(pages))
	for i, page := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", page)
	}
	doc.set(pagesID, []byte(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages))))
	catalog := doc.add([]byte(fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", pagesID)))

	return doc.bytes(catalog), nil
}

func (r *PDFRenderer) header(order *models.Order, info *models.TicketInfo) *pageContent {
	content := &pageContent{}
	content.text("F2", 20, pageMargin, 780, "Je tickets")

	y := 750
	line := func(label, value string) {
		if value == "" {
			return
		}
		content.text("F2", 10, pageMargin, y, label)
		content.text("F1", 10, pageMargin+110, y, value)
		y -= 16
	}

	if info != nil {
		line("Voorstelling:", info.EventName)
		line("Datum:", info.EventDate)
	}
	line("Bestelling:", "#"+order.DisplayNumber())
	line("Naam:", order.CustomerName())
	return content
}

func (r *PDFRenderer) footer(content *pageContent, ticket models.TicketEntry) *pageContent {
	content.text("F1", 9, pageMargin, 320, "Code: "+ticket.TicketCode)
	content.text("F1", 9, pageMargin, 100, "Toon dit ticket bij de ingang. Elke code is eenmaal geldig.")
	return content
}

// qrImage encodes a ticket code as a grayscale FlateDecode image object
func (r *PDFRenderer) qrImage(code string) ([]byte, error) {
	if code == "" {
		return nil, errors.New("empty ticket code")
	}

	qr, err := qrcode.New(code, r.qrLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}
	gray := imaging.Grayscale(imaging.Resize(qr.Image(qrPixels), qrPixels, qrPixels, imaging.NearestNeighbor))
	pixels := grayPixels(gray)

	var compressed bytes.Buffer
	writer := zlib.NewWriter(&compressed)
	if _, err := writer.Write(pixels); err != nil {
		return nil, fmt.Errorf("failed to compress QR image: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress QR image: %w", err)
	}

	dict := fmt.Sprintf("/Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /DeviceGray /BitsPerComponent 8 /Filter /FlateDecode",
		gray.Bounds().Dx(), gray.Bounds().Dy())
	return streamObject(dict, compressed.Bytes()), nil
}

func grayPixels(img *image.NRGBA) []byte {
	bounds := img.Bounds()
	pixels := make([]byte, 0, bounds.Dx()*bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			pixels = append(pixels, img.Pix[img.PixOffset(x, y)])
		}
	}
	return pixels
}

// pageContent is a page content stream
type pageContent struct {
	bytes.Buffer
}

func (c *pageContent) text(font string, size, x, y int, s string) {
	fmt.Fprintf(c, "BT /%s %d Tf %d %d Td (%s) Tj ET\n", font, size, x, y, escapePDFString(s))
}

func (c *pageContent) image(name string, x, y, w, h int) {
	fmt.Fprintf(c, "q %d 0 0 %d %d %d cm /%s Do Q\n", w, h, x, y, name)
}

func (c *pageContent) rect(x, y, w, h int) {
	fmt.Fprintf(c, "q 1 w %d %d %d %d re S Q\n", x, y, w, h)
}

// pdfBuilder collects numbered objects and writes them with a cross-reference
// table
type pdfBuilder struct {
	objects [][]byte
}

func newPDFBuilder() *pdfBuilder {
	return &pdfBuilder{}
}

func (b *pdfBuilder) reserve() int {
	b.objects = append(b.objects, nil)
	return len(b.objects)
}

func (b *pdfBuilder) set(id int, body []byte) {
	b.objects[id-1] = body
}

func (b *pdfBuilder) add(body []byte) int {
	id := b.reserve()
	b.set(id, body)
	return id
}

func (b *pdfBuilder) bytes(root int) []byte {
	var out bytes.Buffer
	out.WriteString("%PDF-1.4\n%\xE2\xE3\xCF\xD3\n")

	offsets := make([]int, len(b.objects))
	for i, body := range b.objects {
		offsets[i] = out.Len()
		fmt.Fprintf(&out, "%d 0 obj\n", i+1)
		out.Write(body)
		out.WriteString("\nendobj\n")
	}

	xref := out.Len()
	fmt.Fprintf(&out, "xref\n0 %d\n", len(b.objects)+1)
	out.WriteString("0000000000 65535 f \n")
	for _, offset := range offsets {
		fmt.Fprintf(&out, "%010d 00000 n \n", offset)
	}
	fmt.Fprintf(&out, "trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(b.objects)+1, root, xref)
	return out.Bytes()
}

func streamObject(dict string, data []byte) []byte {
	var out bytes.Buffer
	fmt.Fprintf(&out, "<< %s /Length %d >>\nstream\n", strings.TrimSpace(dict), len(data))
	out.Write(data)
	out.WriteString("\nendstream")
	return out.Bytes()
}

var winAnsiExtras = map[rune]byte{
	'€': 0x80, '‘': 0x91, '’': 0x92, '“': 0x93, '”': 0x94, '•': 0x95, '–': 0x96, '—': 0x97,
}

// escapePDFString encodes a string for a WinAnsi literal string
func escapePDFString(s string) string {
	var out strings.Builder
	for _, r := range s {
		switch {
		case r == '\\' || r == '(' || r == ')':
			out.WriteByte('\\')
			out.WriteByte(byte(r))
		case r == '\r' || r == '\n':
			out.WriteByte(' ')
		case r < 0x80:
			out.WriteByte(byte(r))
		case r >= 0xA0 && r <= 0xFF:
			out.WriteByte(byte(r))
		default:
			if b, ok := winAnsiExtras[r]; ok {
				out.WriteByte(b)
			} else {
				out.WriteByte('?')
			}
		}
	}
	return out.String()
}
