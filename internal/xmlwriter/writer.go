// =============================================================================
// Rechnungstool - XML Writer Module
// =============================================================================
//
// This module serializes invoices as structured XML. Two documents are built
// from the same input tuple:
//
//   1. Internal working copy (cii.go)
//      rsm:CrossIndustryInvoice, dates as YYYYMMDD (format 102). Written to
//      the temp directory, read back for validation and deleted once the PDF
//      exists.
//
//   2. Export (ubl.go)
//      ubl:Invoice following XRechnung 3.0, dates as YYYY-MM-DD. This is the
//      durable XRechnung_<number>.xml.
//
// OUTPUT RULES:
//   - Every monetary amount has exactly two decimals.
//   - Output is byte-for-byte deterministic for identical input.
//   - Elements are written in insertion order, two-space indented.
//
// =============================================================================

package xmlwriter

import (
	"bytes"
	"encoding/xml"
)

// =============================================================================
// XML DOCUMENT BUILDING
// =============================================================================

// XMLElement is a generic element. A non-empty XMLName.Space is written as
// the namespace prefix, so {Space: "cbc", Local: "ID"} becomes <cbc:ID>.
type XMLElement struct {
	XMLName    xml.Name
	Attributes []xml.Attr
	Value      string
	Children   []XMLElement
}

// el creates an element with a text value.
func el(prefix, local, value string) XMLElement {
	return XMLElement{
		XMLName: xml.Name{Space: prefix, Local: local},
		Value:   value,
	}
}

// group creates an element holding children.
func group(prefix, local string, children ...XMLElement) XMLElement {
	return XMLElement{
		XMLName:  xml.Name{Space: prefix, Local: local},
		Children: children,
	}
}

// withAttr returns a copy of e carrying one more attribute.
func (e XMLElement) withAttr(name, value string) XMLElement {
	e.Attributes = append(append([]xml.Attr(nil), e.Attributes...), xml.Attr{
		Name:  xml.Name{Local: name},
		Value: value,
	})
	return e
}

// add appends children to e.
func (e *XMLElement) add(children ...XMLElement) {
	e.Children = append(e.Children, children...)
}

// =============================================================================
// SERIALIZATION
// =============================================================================

// Marshal renders root with an XML declaration and two-space indentation.
func Marshal(root XMLElement) []byte {
	var buffer bytes.Buffer
	buffer.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	writeElement(&buffer, root, "  ", 0)
	return buffer.Bytes()
}

func qualifiedName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

// writeElement writes an XML element to the buffer with indentation.
func writeElement(buffer *bytes.Buffer, element XMLElement, indent string, level int) {
	for i := 0; i < level; i++ {
		buffer.WriteString(indent)
	}

	name := qualifiedName(element.XMLName)
	buffer.WriteString("<")
	buffer.WriteString(name)

	for _, attr := range element.Attributes {
		buffer.WriteString(" ")
		buffer.WriteString(qualifiedName(attr.Name))
		buffer.WriteString(`="`)
		buffer.WriteString(escapeXML(attr.Value))
		buffer.WriteString(`"`)
	}

	if len(element.Children) == 0 && element.Value == "" {
		buffer.WriteString("/>\n")
		return
	}

	buffer.WriteString(">")

	if len(element.Children) == 0 {
		buffer.WriteString(escapeXML(element.Value))
	} else {
		buffer.WriteString("\n")
		for _, child := range element.Children {
			writeElement(buffer, child, indent, level+1)
		}
		for i := 0; i < level; i++ {
			buffer.WriteString(indent)
		}
	}

	buffer.WriteString("</")
	buffer.WriteString(name)
	buffer.WriteString(">\n")
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
