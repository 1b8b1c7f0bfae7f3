package utils

import (
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

func GenerateID() string {
	return uuid.NewString()
}

func DatatypesJSONFromStrings(ss []string) datatypes.JSON {
	if ss == nil {
		ss = []string{}
	}
	b, _ := json.Marshal(ss)
	return datatypes.JSON(b)
}

// StringsFromJSON decodes a JSON string array; anything else yields nil.
func StringsFromJSON(j datatypes.JSON) []string {
	var arr []string
	if len(j) == 0 {
		return nil
	}
	if err := json.Unmarshal([]byte(j), &arr); err != nil {
		return nil
	}
	return arr
}
