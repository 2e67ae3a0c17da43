package models

import "github.com/mitchellh/mapstructure"

// DecodeConfigView projects a Config's flexible Data bag onto the typed
// ConfigView, grounded on mapstructure the way hermes leans on it for
// decoding loosely-typed HCL/JSON blocks into structs.
func DecodeConfigView(data JSONMap) (ConfigView, error) {
	var view ConfigView
	if data == nil {
		return view, nil
	}
	if err := mapstructure.Decode(map[string]interface{}(data), &view); err != nil {
		return view, err
	}
	return view, nil
}

// EncodeConfigView serializes a ConfigView back into a JSONMap, preserving
// any extension keys already present in base (mapstructure only touches the
// recognized fields).
func EncodeConfigView(view ConfigView, base JSONMap) JSONMap {
	out := JSONMap{}
	for k, v := range base {
		out[k] = v
	}
	out["token"] = view.Token
	out["boardId"] = view.BoardID
	out["boardName"] = view.BoardName
	out["listId"] = view.ListID
	out["listName"] = view.ListName
	if view.TargetListID != "" {
		out["targetListId"] = view.TargetListID
	}
	if view.TargetListName != "" {
		out["targetListName"] = view.TargetListName
	}
	return out
}
