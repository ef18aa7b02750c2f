package storage

type DataType byte

const (
	TypeString DataType = iota + 1
	TypeList
)

func (t DataType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeList:
		return "list"
	}
	return "none"
}

// Entity generic container for value
type Entity struct {
	Type  DataType
	Value interface{} // string for TypeString, []string for TypeList
}

func newString(value string) *Entity {
	return &Entity{Type: TypeString, Value: value}
}
