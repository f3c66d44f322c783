package badger

// Key layout. Table and index names never contain ':' and every value
// segment after them is terminated by keySep, so one partition's keys
// never prefix another's.
//
//	tbl:<table>                                  table description
//	itm:<table>:<pk>                             item
//	idx:<table>:<index>:<pv>\x00<pk>             index entry, no sort key
//	idx:<table>:<index>:<pv>\x00<sv>\x00<pk>     index entry with sort key
const (
	tablePrefix = "tbl:"
	itemPrefix  = "itm:"
	indexPrefix = "idx:"
	keySep      = 0x00
	keyMax      = 0xFF
)

// makeTableKey generates the catalog key for a table description.
func makeTableKey(table string) []byte {
	return []byte(tablePrefix + table)
}

// makeItemPrefix generates the prefix shared by all items of a table.
func makeItemPrefix(table string) []byte {
	return []byte(itemPrefix + table + ":")
}

// makeItemKey generates the key for an item by partition key value.
func makeItemKey(table, pk string) []byte {
	return append(makeItemPrefix(table), pk...)
}

// makeIndexPrefix generates the prefix shared by all entries of an index.
func makeIndexPrefix(table, index string) []byte {
	return []byte(indexPrefix + table + ":" + index + ":")
}

// makeIndexPartitionKey generates the prefix of one index partition.
// Format: prefix:pv\x00
func makeIndexPartitionKey(table, index, pv string) []byte {
	buf := append(makeIndexPrefix(table, index), pv...)
	return append(buf, keySep)
}

// makeIndexSortPrefix narrows a partition prefix to one sort value.
// Format: prefix:pv\x00sv\x00
func makeIndexSortPrefix(partition []byte, sv string) []byte {
	buf := append([]byte{}, partition...)
	buf = append(buf, sv...)
	return append(buf, keySep)
}

// makeIndexEntryKey generates the key of one index entry.
func makeIndexEntryKey(table, index, pv string, sv *string, pk string) []byte {
	buf := makeIndexPartitionKey(table, index, pv)
	if sv != nil {
		buf = makeIndexSortPrefix(buf, *sv)
	}
	return append(buf, pk...)
}

// seekPastPrefix returns a key greater than every key that starts with
// prefix, for reverse iteration.
func seekPastPrefix(prefix []byte) []byte {
	buf := append([]byte{}, prefix...)
	return append(buf, keyMax)
}
