package parser

import (
	"strings"

	"github.com/ridoystarlord/pgguard/schema"
)

// FormatColumnRefs renders column references as a comma separated list.
// An empty list is rendered as "-".
func FormatColumnRefs(refs []schema.ColumnReference) string {
	if len(refs) == 0 {
		return "-"
	}

	formatted := make([]string, len(refs))
	for i, ref := range refs {
		if ref.Qualified() {
			formatted[i] = ref.TableName + "." + ref.ColumnName
		} else {
			formatted[i] = ref.ColumnName
		}
	}
	return strings.Join(formatted, ", ")
}

// FormatColumnType describes a column type, e.g. "text (default value, nullable)"
// or "enum ['draft', 'published']". Only the type name of a subtype is shown.
func FormatColumnType(d schema.ColumnDescriptor) string {
	var props []string
	if d.HasDefault {
		props = append(props, "default value")
	}
	if d.Nullable {
		props = append(props, "nullable")
	}

	propsString := ""
	if len(props) > 0 {
		propsString = " (" + strings.Join(props, ", ") + ")"
	}

	if d.Type == schema.TypeEnum {
		values := make([]string, len(d.Enum))
		for i, value := range d.Enum {
			values[i] = "'" + value + "'"
		}
		return "enum" + propsString + " [" + strings.Join(values, ", ") + "]"
	}

	subtype := ""
	if d.Subtype != nil {
		subtype = "[" + d.Subtype.Type + "]"
	}
	return d.Type + subtype + propsString
}
