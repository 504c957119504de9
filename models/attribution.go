package models

// Attribution bir değişikliği kimin, hangi kanaldan tetiklediğini taşır.
// Her yeniden hesaplama çağrısına açıkça geçirilir.
type Attribution struct {
	UserID      uint
	Channel     ChannelKind
	ChannelSlug string
}

// SystemAttribution kullanıcıya bağlı olmayan (hook, düzeltici script) değişiklikler için.
func SystemAttribution(channelSlug string) Attribution {
	return Attribution{Channel: ChannelGeneral, ChannelSlug: channelSlug}
}
