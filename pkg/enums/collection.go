package enums

// Collection names a live-sync channel that list screens subscribe to.
type Collection string

const (
	CollectionOrders Collection = "orders"
	CollectionForms  Collection = "forms"
)

var validCollections = []Collection{CollectionOrders, CollectionForms}

func (c Collection) String() string {
	return string(c)
}

func (c Collection) IsValid() bool {
	_, err := ParseCollection(string(c))
	return err == nil
}

func ParseCollection(value string) (Collection, error) {
	return parse(validCollections, value, "collection")
}
