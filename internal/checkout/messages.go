package checkout

import (
	"fmt"

	"github.com/toolshop/storefront/pkg/enums"
)

// ConfirmationMessage is the method-specific text shown once an order is recorded.
func ConfirmationMessage(method enums.PaymentMethod, orderID int64) string {
	switch method {
	case enums.PaymentMethodOrangeMoney:
		return fmt.Sprintf("🎉 Paiement Orange Money réussi! Commande #%d confirmée.", orderID)
	case enums.PaymentMethodMTNMobile:
		return fmt.Sprintf("🎉 Paiement MTN Mobile Money réussi! Commande #%d confirmée.", orderID)
	case enums.PaymentMethodBankTransfer:
		return fmt.Sprintf("🏦 Virement bancaire enregistré! Commande #%d en attente de validation.", orderID)
	case enums.PaymentMethodCashDelivery:
		return fmt.Sprintf("💵 Commande #%d enregistrée! Paiement à la livraison.", orderID)
	}
	return fmt.Sprintf("Commande #%d enregistrée.", orderID)
}

func failureMessage(method enums.PaymentMethod) string {
	return fmt.Sprintf("❌ Échec du paiement (%s). Veuillez réessayer.", method)
}
