package prototype

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// ChainTimeLayout is the timestamp layout used by the node API. Times are UTC
// and carry no zone suffix.
const ChainTimeLayout = "2006-01-02T15:04:05"

// ChainTime wraps time.Time with the node's wire format.
type ChainTime struct {
	time.Time
}

func ParseChainTime(s string) (ChainTime, error) {
	s = strings.TrimSuffix(s, "Z")
	t, err := time.ParseInLocation(ChainTimeLayout, s, time.UTC)
	if err != nil {
		return ChainTime{}, err
	}
	return ChainTime{Time: t}, nil
}

func (t ChainTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(ChainTimeLayout))
}

func (t *ChainTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := ParseChainTime(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// FlexInt64 accepts both JSON numbers and numeric strings. The node encodes
// 64-bit quantities (rshares, mana, reputation) either way depending on the API.
type FlexInt64 int64

func (f *FlexInt64) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = s
	}
	if raw == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		fv, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil {
			return err
		}
		v = int64(fv)
	}
	*f = FlexInt64(v)
	return nil
}

func (f FlexInt64) Int64() int64 {
	return int64(f)
}
