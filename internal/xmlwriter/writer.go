// =============================================================================
// SEPA Credit Transfer - XML Writer Module
// =============================================================================
//
// This module turns an ordered element tree into an indented XML document.
// Callers build the tree with Element values; child order is preserved
// exactly, which is what schema-ordered formats such as pain.001 need.
//
// OUTPUT SHAPE:
//
//   <?xml version="1.0" encoding="UTF-8"?>
//   <root>
//     <Parent>
//       <Child attr="x">value</Child>
//       <Empty/>
//     </Parent>
//   </root>
//
// =============================================================================

package xmlwriter

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// XML GENERATION OPTIONS
// =============================================================================

// GenerateOptions contains options for XML generation.
type GenerateOptions struct {
	// Indent is the string used for one level of indentation.
	// Default: "  " (two spaces)
	Indent string

	// IncludeXMLDeclaration determines whether to include the XML declaration.
	// Default: true
	IncludeXMLDeclaration bool

	// XMLVersion is the XML version for the declaration.
	// Default: "1.0"
	XMLVersion string

	// Encoding is the encoding for the XML declaration.
	// Default: "UTF-8"
	Encoding string
}

// DefaultGenerateOptions returns the default generation options.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Indent:                "  ",
		IncludeXMLDeclaration: true,
		XMLVersion:            "1.0",
		Encoding:              "UTF-8",
	}
}

// =============================================================================
// ELEMENT TREE
// =============================================================================

// Attr is a single element attribute.
type Attr struct {
	Name  string
	Value string
}

// Element is a node in the document tree. An element carries either a text
// value or children; if both are set the value wins.
type Element struct {
	Name       string
	Attributes []Attr
	Value      string
	Children   []*Element
}

// NewElement creates an element with no value and no children.
func NewElement(name string) *Element {
	return &Element{Name: name}
}

// Text creates a simple element with a text value.
func Text(name, value string) *Element {
	return &Element{Name: name, Value: value}
}

// Add appends children in order and returns the receiver.
func (e *Element) Add(children ...*Element) *Element {
	e.Children = append(e.Children, children...)
	return e
}

// AddText appends a simple text child and returns the receiver.
func (e *Element) AddText(name, value string) *Element {
	return e.Add(Text(name, value))
}

// Child appends a new empty element and returns the new child, so nested
// structures can be built without temporaries.
func (e *Element) Child(name string) *Element {
	child := NewElement(name)
	e.Add(child)
	return child
}

// SetAttr sets (or adds) an attribute and returns the receiver.
func (e *Element) SetAttr(name, value string) *Element {
	for i := range e.Attributes {
		if e.Attributes[i].Name == name {
			e.Attributes[i].Value = value
			return e
		}
	}
	e.Attributes = append(e.Attributes, Attr{Name: name, Value: value})
	return e
}

// Find returns the first direct child with the given name, or nil.
func (e *Element) Find(name string) *Element {
	for _, child := range e.Children {
		if child.Name == name {
			return child
		}
	}
	return nil
}

// =============================================================================
// XML GENERATION FUNCTIONS
// =============================================================================

// Generate serializes the tree rooted at root with the default options.
func Generate(root *Element) ([]byte, error) {
	return GenerateWithOptions(root, DefaultGenerateOptions())
}

// GenerateWithOptions serializes the tree rooted at root.
//
// RETURNS:
//   - The XML document as a byte slice.
//   - An error if the tree contains an element without a name.
func GenerateWithOptions(root *Element, options GenerateOptions) ([]byte, error) {
	if root == nil {
		return nil, errors.New("root element is nil")
	}

	if err := checkNames(root); err != nil {
		return nil, fmt.Errorf("failed to marshal XML: %w", err)
	}

	var buffer bytes.Buffer

	// Write XML declaration if requested.
	if options.IncludeXMLDeclaration {
		buffer.WriteString(fmt.Sprintf("<?xml version=\"%s\" encoding=\"%s\"?>\n",
			options.XMLVersion, options.Encoding))
	}

	writeElement(&buffer, root, options.Indent, 0)

	return buffer.Bytes(), nil
}

// checkNames walks the tree and rejects unnamed elements.
func checkNames(element *Element) error {
	if strings.TrimSpace(element.Name) == "" {
		return errors.New("element without a name")
	}
	for _, child := range element.Children {
		if child == nil {
			return fmt.Errorf("nil child under <%s>", element.Name)
		}
		if err := checkNames(child); err != nil {
			return err
		}
	}
	return nil
}

// writeElement writes an XML element to the buffer with indentation.
func writeElement(buffer *bytes.Buffer, element *Element, indent string, level int) {
	// Write indentation.
	buffer.WriteString(strings.Repeat(indent, level))

	// Write opening tag.
	buffer.WriteString("<")
	buffer.WriteString(element.Name)

	// Write attributes.
	for _, attr := range element.Attributes {
		buffer.WriteString(fmt.Sprintf(" %s=\"%s\"", attr.Name, escapeXML(attr.Value)))
	}

	// Check if element has children or value.
	if len(element.Children) == 0 && element.Value == "" {
		// Self-closing tag.
		buffer.WriteString("/>\n")
		return
	}

	buffer.WriteString(">")

	// Write value or children.
	if element.Value != "" {
		buffer.WriteString(escapeXML(element.Value))
	} else {
		buffer.WriteString("\n")

		for _, child := range element.Children {
			writeElement(buffer, child, indent, level+1)
		}

		// Write indentation for closing tag.
		buffer.WriteString(strings.Repeat(indent, level))
	}

	// Write closing tag.
	buffer.WriteString("</")
	buffer.WriteString(element.Name)
	buffer.WriteString(">\n")
}

// escapeXML escapes markup characters and replaces characters XML 1.0 does
// not allow (most C0 controls, invalid UTF-8) with U+FFFD.
func escapeXML(s string) string {
	var buffer bytes.Buffer
	// Writes to a bytes.Buffer cannot fail.
	_ = xml.EscapeText(&buffer, []byte(s))
	return buffer.String()
}
