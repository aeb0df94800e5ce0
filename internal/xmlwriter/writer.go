// =============================================================================
// BR Code Generator - Manifest Writer
// =============================================================================
//
// Each processed order file yields one XML manifest listing the payloads
// generated for it, ready to be imported by a printing or messaging tool.
//
// XML STRUCTURE:
//
//   <charges profile="LOJA" source="loja_maio.csv" generated="2024-05-01T10:00:00Z">
//     <charge n="1" row="2">              <!-- n: position, row: source row -->
//       <reference>A1</reference>         <!-- label sent in field 62/05 -->
//       <amount>10.00</amount>            <!-- omitted for open amounts -->
//       <key>user@bank.com</key>
//       <payload>000201...6304193D</payload>
//     </charge>
//     <rejected row="4" reason="payment key is required"/>
//   </charges>
//
// =============================================================================

package xmlwriter

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/ginjaninja78/brcode-generator/internal/types"
	"github.com/ginjaninja78/brcode-generator/pkg/brcode"
)

// =============================================================================
// MANIFEST
// =============================================================================

// Manifest is the content of one output file.
type Manifest struct {
	Profile     string
	Source      string
	GeneratedAt time.Time

	// Charges are the rows that produced a payload, in source order.
	Charges []types.Charge

	// Rejected are the rows that did not.
	Rejected []Rejection
}

// Rejection records a row that did not produce a payload.
type Rejection struct {
	Row    int
	Reason string
}

// =============================================================================
// XML GENERATION OPTIONS
// =============================================================================

// GenerateOptions contains options for XML generation.
type GenerateOptions struct {
	// Indent is the string used for indentation.
	// Default: "  " (two spaces)
	Indent string

	// IncludeXMLDeclaration writes <?xml version="1.0" encoding="UTF-8"?>.
	// Default: true
	IncludeXMLDeclaration bool

	// IncludeRejected lists rejected rows in the manifest.
	// Default: true
	IncludeRejected bool

	// RootAttributes are additional attributes for the root element.
	// Example: {"xmlns": "urn:example:charges"}
	RootAttributes map[string]string
}

// DefaultGenerateOptions returns the default generation options.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Indent:                "  ",
		IncludeXMLDeclaration: true,
		IncludeRejected:       true,
		RootAttributes:        make(map[string]string),
	}
}

// =============================================================================
// XML GENERATION FUNCTIONS
// =============================================================================

// Generate renders the manifest with the default options.
func Generate(m *Manifest) ([]byte, error) {
	return GenerateWithOptions(m, DefaultGenerateOptions())
}

// GenerateWithOptions renders the manifest.
//
// RETURNS:
//   - The XML document.
//   - An error if a charge has no payload (the manifest would be useless).
func GenerateWithOptions(m *Manifest, options GenerateOptions) ([]byte, error) {
	root, err := buildDocument(m, options)
	if err != nil {
		return nil, err
	}

	var buffer bytes.Buffer
	if options.IncludeXMLDeclaration {
		buffer.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	}
	writeElement(&buffer, root, options.Indent, 0)
	return buffer.Bytes(), nil
}

// =============================================================================
// DOCUMENT TREE
// =============================================================================

type attribute struct {
	Name  string
	Value string
}

type element struct {
	Name       string
	Attributes []attribute
	Value      string
	Children   []element
}

func buildDocument(m *Manifest, options GenerateOptions) (element, error) {
	root := element{
		Name: "charges",
		Attributes: []attribute{
			{Name: "profile", Value: m.Profile},
			{Name: "source", Value: m.Source},
		},
	}
	if !m.GeneratedAt.IsZero() {
		root.Attributes = append(root.Attributes, attribute{Name: "generated", Value: m.GeneratedAt.UTC().Format(time.RFC3339)})
	}
	for _, name := range sortedKeys(options.RootAttributes) {
		root.Attributes = append(root.Attributes, attribute{Name: name, Value: options.RootAttributes[name]})
	}

	for i, charge := range m.Charges {
		if charge.Payload == "" {
			return element{}, fmt.Errorf("charge for row %d has no payload", charge.Row)
		}
		root.Children = append(root.Children, buildChargeElement(i+1, charge))
	}

	if options.IncludeRejected {
		for _, r := range m.Rejected {
			root.Children = append(root.Children, element{
				Name: "rejected",
				Attributes: []attribute{
					{Name: "row", Value: strconv.Itoa(r.Row)},
					{Name: "reason", Value: r.Reason},
				},
			})
		}
	}

	return root, nil
}

func buildChargeElement(n int, charge types.Charge) element {
	el := element{
		Name: "charge",
		Attributes: []attribute{
			{Name: "n", Value: strconv.Itoa(n)},
			{Name: "row", Value: strconv.Itoa(charge.Row)},
		},
	}

	el.Children = append(el.Children, element{Name: "reference", Value: brcode.ReferenceLabel(charge.Reference)})
	if amount, ok := brcode.FormatAmount(charge.Amount); ok {
		el.Children = append(el.Children, element{Name: "amount", Value: amount})
	}
	el.Children = append(el.Children,
		element{Name: "key", Value: charge.PaymentKey},
		element{Name: "payload", Value: charge.Payload},
	)
	return el
}

// =============================================================================
// SERIALIZATION
// =============================================================================

func writeElement(buffer *bytes.Buffer, el element, indent string, level int) {
	writeIndent(buffer, indent, level)

	buffer.WriteString("<")
	buffer.WriteString(el.Name)
	for _, attr := range el.Attributes {
		fmt.Fprintf(buffer, ` %s="%s"`, attr.Name, escapeXML(attr.Value))
	}

	if len(el.Children) == 0 && el.Value == "" {
		buffer.WriteString("/>\n")
		return
	}
	buffer.WriteString(">")

	if len(el.Children) == 0 {
		buffer.WriteString(escapeXML(el.Value))
	} else {
		buffer.WriteString("\n")
		for _, child := range el.Children {
			writeElement(buffer, child, indent, level+1)
		}
		writeIndent(buffer, indent, level)
	}

	buffer.WriteString("</")
	buffer.WriteString(el.Name)
	buffer.WriteString(">\n")
}

func writeIndent(buffer *bytes.Buffer, indent string, level int) {
	for i := 0; i < level; i++ {
		buffer.WriteString(indent)
	}
}

// escapeXML escapes special characters for XML.
func escapeXML(s string) string {
	var buffer bytes.Buffer
	for _, r := range s {
		switch r {
		case '&':
			buffer.WriteString("&amp;")
		case '<':
			buffer.WriteString("&lt;")
		case '>':
			buffer.WriteString("&gt;")
		case '"':
			buffer.WriteString("&quot;")
		case '\'':
			buffer.WriteString("&apos;")
		default:
			buffer.WriteRune(r)
		}
	}
	return buffer.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}

// =============================================================================
// XSD GENERATION
// =============================================================================

// GenerateXSD returns the schema of the manifest, for consumers that
// validate imports.
func GenerateXSD() []byte {
	return []byte(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
  <xs:element name="charges">
    <xs:complexType>
      <xs:sequence>
        <xs:element ref="charge" minOccurs="0" maxOccurs="unbounded"/>
        <xs:element ref="rejected" minOccurs="0" maxOccurs="unbounded"/>
      </xs:sequence>
      <xs:attribute name="profile" type="xs:string" use="required"/>
      <xs:attribute name="source" type="xs:string" use="required"/>
      <xs:attribute name="generated" type="xs:dateTime"/>
      <xs:anyAttribute processContents="lax"/>
    </xs:complexType>
  </xs:element>

  <xs:element name="charge">
    <xs:complexType>
      <xs:sequence>
        <xs:element name="reference">
          <xs:simpleType>
            <xs:restriction base="xs:string">
              <xs:pattern value="[A-Za-z0-9]{1,%d}|\*\*\*"/>
            </xs:restriction>
          </xs:simpleType>
        </xs:element>
        <xs:element name="amount" minOccurs="0">
          <xs:simpleType>
            <xs:restriction base="xs:string">
              <xs:pattern value="[0-9]+\.[0-9]{2}"/>
              <xs:maxLength value="%d"/>
            </xs:restriction>
          </xs:simpleType>
        </xs:element>
        <xs:element name="key" type="xs:string"/>
        <xs:element name="payload">
          <xs:simpleType>
            <xs:restriction base="xs:string">
              <xs:pattern value="000201.*6304[0-9A-F]{4}"/>
            </xs:restriction>
          </xs:simpleType>
        </xs:element>
      </xs:sequence>
      <xs:attribute name="n" type="xs:positiveInteger" use="required"/>
      <xs:attribute name="row" type="xs:positiveInteger" use="required"/>
    </xs:complexType>
  </xs:element>

  <xs:element name="rejected">
    <xs:complexType>
      <xs:attribute name="row" type="xs:positiveInteger" use="required"/>
      <xs:attribute name="reason" type="xs:string" use="required"/>
    </xs:complexType>
  </xs:element>
</xs:schema>
`, brcode.MaxReferenceLen, brcode.MaxAmountLen))
}
