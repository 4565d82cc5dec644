package junction

import "strconv"

// StringValue is a string read from the request together with the error, if
// any, that occurred while reading it. The conversion helpers return that
// error first.
type StringValue struct {
	val string
	err error
}

func (s StringValue) String() (string, error) {
	return s.val, s.err
}

func (s StringValue) StringOrDefault(def string) string {
	if s.err != nil {
		return def
	}
	return s.val
}

func (s StringValue) AsInt64() (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return strconv.ParseInt(s.val, 10, 64)
}

func (s StringValue) AsUint64() (uint64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return strconv.ParseUint(s.val, 10, 64)
}

func (s StringValue) AsFloat64() (float64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return strconv.ParseFloat(s.val, 64)
}

func (s StringValue) AsBool() (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return strconv.ParseBool(s.val)
}
