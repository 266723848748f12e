package bus

import "encoding/json"

// ---------- page ----------
// topic: "page:<session id>"

type B_PageCall struct { // call
	Method string
	Params any
}

type B_PageNotify struct { // notify
	Method string
	Params any
}

// B_PageCall response data
type B_PageCall_Response json.RawMessage

func PageTopic(sessionID string) string {
	return "page:" + sessionID
}
