package services

// WalletServiceError cüzdan yazma yolunun hataları.
type WalletServiceError string

func (e WalletServiceError) Error() string { return string(e) }

const (
	ErrInvalidInput           WalletServiceError = "geçersiz girdi"
	ErrUserNotFound           WalletServiceError = "kullanıcı bulunamadı"
	ErrPaymentCardNotFound    WalletServiceError = "ödeme kartı bulunamadı"
	ErrLoyaltyAccountNotFound WalletServiceError = "sadakat hesabı bulunamadı"
	ErrNotInWallet            WalletServiceError = "kart kullanıcının cüzdanında değil"
	ErrSchemeAlreadyLinked    WalletServiceError = "bu ödeme kartı cüzdanda aynı şemadan başka bir sadakat kartına bağlı"
	ErrAccountDeleted         WalletServiceError = "hesap silinmiş"
)
