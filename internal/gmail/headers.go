package gmail

// HeaderValue returns the value of the first header named exactly name.
func (m *MessageMeta) HeaderValue(name string) (string, bool) {
	for _, h := range m.Headers {
		if h.Name == name {
			return h.Value, true
		}
	}
	return "", false
}
