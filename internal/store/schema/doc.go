// Package schema defines the durable rows of the todo store.
//
// # Lists
//
// A List groups todos. Its avatar is an image URL (or data URL); lists
// created without one get DefaultAvatar.
//
//	{"id": 1, "name": "Home", "avatar": "https://cdn-icons-png.flaticon.com/512/8161/8161879.png"}
//
// # Todos
//
// A Todo has text, a status (todo or done) and an optional list. Deleting a
// list deletes its todos. SearchVector is derived from Text by the store and
// is read-only to callers.
//
//	{"id": 7, "text": "Buy milk", "status": "todo", "list_id": 1, "search_vector": "buy milk"}
//
// # Live result sets
//
// Live queries deliver untyped rows; ListsFromRows and TodosFromRows map them
// back to typed values by column name, so "SELECT *" keeps working when
// columns are added.
package schema
