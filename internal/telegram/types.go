package telegram

// Update is one Telegram Bot API webhook payload. Callback-query
// updates (inline keyboards) aren't part of this bot's surface — every
// interrupt, including disambiguation, is answered as a plain text
// reply per the pipeline's InterruptPayload contract.
type Update struct {
	Message *Message `json:"message"`
}

type Message struct {
	MessageID  int64    `json:"message_id"`
	Text       string   `json:"text"`
	Chat       Chat     `json:"chat"`
	From       *User    `json:"from"`
	ReplyToMsg *Message `json:"reply_to_message,omitempty"`
}

type Chat struct {
	ID int64 `json:"id"`
}

type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	LanguageCode string `json:"language_code"`
}

type SendMessageResponse struct {
	Ok     bool    `json:"ok"`
	Result Message `json:"result"`
}
