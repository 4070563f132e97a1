package todos

import (
	"encoding/json"
	"fmt"
)

const idField = "id"

// Todo is one item of the to-do list. Only the ID is read here. Every other
// member is kept exactly as the list API sent it, so items round-trip unchanged.
// The ID is assigned by the list API and is left out of the body while zero.
type Todo struct {
	ID     int
	Fields map[string]json.RawMessage
}

// NewTodo builds an item from plain values, e.g. {"title": "milk", "completed": false}.
func NewTodo(id int, fields map[string]any) (Todo, error) {
	todo := Todo{ID: id}
	for name, value := range fields {
		if err := todo.Set(name, value); err != nil {
			return Todo{}, err
		}
	}
	return todo, nil
}

// Set stores value under name, replacing any previous value.
func (t *Todo) Set(name string, value any) error {
	if name == idField {
		return fmt.Errorf("todo field %q is set through ID", idField)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("todo field %q: %w", name, err)
	}
	if t.Fields == nil {
		t.Fields = make(map[string]json.RawMessage)
	}
	t.Fields[name] = raw
	return nil
}

// Field decodes the member name into v. It reports false when the member is absent.
func (t Todo) Field(name string, v any) (bool, error) {
	raw, ok := t.Fields[name]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, v)
}

func (t Todo) MarshalJSON() ([]byte, error) {
	members := make(map[string]json.RawMessage, len(t.Fields)+1)
	for name, raw := range t.Fields {
		members[name] = raw
	}
	if t.ID != 0 {
		members[idField] = json.RawMessage(fmt.Sprintf("%d", t.ID))
	}
	return json.Marshal(members)
}

func (t *Todo) UnmarshalJSON(data []byte) error {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return err
	}

	*t = Todo{}
	if raw, ok := members[idField]; ok {
		if string(raw) != "null" {
			if err := json.Unmarshal(raw, &t.ID); err != nil {
				return fmt.Errorf("todo id: %w", err)
			}
		}
		delete(members, idField)
	}
	if len(members) > 0 {
		t.Fields = members
	}
	return nil
}
