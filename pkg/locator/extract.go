package locator

import "golang.org/x/net/html"

// DefaultHost is the canonical host used to build absolute tweet URLs.
const DefaultHost = "x.com"

// TweetData is the ephemeral snapshot of one tweet, derived purely
// from the DOM at capture time and never persisted.
type TweetData struct {
	TweetID     string
	DisplayName string
	Username    string
	AvatarURL   string
	Content     string
	Timestamp   string
	Datetime    string
	IsVerified  bool
	ImageURLs   []string
	IsRetweet   bool
	TweetURL    string
}

// Extract builds a TweetData snapshot from a tweet container. It
// returns nil only when one of the required derivations fails: id,
// username, display name, avatar, or canonical URL. Content, images,
// verification and retweet status are optional and default to
// empty/false.
func Extract(tweet *html.Node) *TweetData {
	if tweet == nil {
		return nil
	}

	id := TweetID(tweet)
	if id == "" {
		return nil
	}

	header := UserHeader(tweet)
	if header == nil {
		return nil
	}
	username := Username(header)
	display := DisplayName(header)
	if username == "" || display == "" {
		return nil
	}

	avatar := AvatarURL(tweet)
	if avatar == "" {
		return nil
	}

	text, datetime := Timestamp(tweet)
	data := &TweetData{
		TweetID:     id,
		DisplayName: display,
		Username:    username,
		AvatarURL:   avatar,
		Content:     Content(tweet),
		Timestamp:   text,
		Datetime:    datetime,
		IsVerified:  IsVerified(header),
		ImageURLs:   PhotoURLs(tweet),
		IsRetweet:   IsRetweet(tweet),
		TweetURL:    "https://" + DefaultHost + "/" + username + "/status/" + id,
	}
	return data
}
