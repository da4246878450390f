package main

import (
	"fmt"
	"io"

	"github.com/SARVESHVARADKAR123/dmsync/internal/domain"
)

func renderMessage(w io.Writer, m domain.Message, self string) {
	who := m.SenderID
	if m.SenderID == self {
		who = "you"
	}
	state := ""
	if m.SenderID == self && m.DeliveryState != "" {
		state = " (" + string(m.DeliveryState) + ")"
	}
	fmt.Fprintf(w, "%s  %-10s %s%s  [%s]\n", m.CreatedAt.Local().Format("15:04:05"), who, m.Preview(), state, m.ID)
}
