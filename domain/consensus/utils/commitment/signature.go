package commitment

import (
	"github.com/kaspanet/go-secp256k1"
	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/mwnode/basenode/domain/consensus/utils/consensushashing"
	"github.com/pkg/errors"
)

// ErrInvalidSignature is returned when a kernel signature doesn't verify
var ErrInvalidSignature = errors.New("invalid kernel signature")

// SignKernel signs the kernel message with the excess blinding factor.
// The kernel's excess must be excessKey*G.
func SignKernel(excessKey *externalapi.Scalar, features externalapi.KernelFeatures, fee uint64,
	lockHeight uint64) (externalapi.Signature, error) {

	keyPair, err := secp256k1.DeserializeSchnorrPrivateKeyFromSlice(excessKey[:])
	if err != nil {
		return externalapi.Signature{}, errors.Wrapf(ErrInvalidScalar, "cannot sign kernel: %s", err)
	}
	message := consensushashing.KernelSignatureMessage(features, fee, lockHeight)
	secpHash := secp256k1.Hash(*message.ByteArray())
	signature, err := keyPair.SchnorrSign(&secpHash)
	if err != nil {
		return externalapi.Signature{}, errors.Errorf("cannot sign kernel: %s", err)
	}
	return externalapi.Signature(*signature.Serialize()), nil
}

// VerifyKernelSignature checks the kernel's excess signature against
// the x coordinate of its excess
func VerifyKernelSignature(kernel *externalapi.TransactionKernel) error {
	if kernel.Excess.IsZero() {
		return errors.Wrapf(ErrInvalidSignature, "kernel excess is the point at infinity")
	}
	publicKey, err := secp256k1.DeserializeSchnorrPubKey(kernel.Excess[1:])
	if err != nil {
		return errors.Wrapf(ErrInvalidSignature, "kernel excess %s: %s", kernel.Excess, err)
	}
	signature, err := secp256k1.DeserializeSchnorrSignatureFromSlice(kernel.ExcessSig[:])
	if err != nil {
		return errors.Wrapf(ErrInvalidSignature, "kernel signature %s: %s", kernel.ExcessSig, err)
	}
	message := consensushashing.KernelSignatureMessage(kernel.Features, kernel.Fee, kernel.LockHeight)
	secpHash := secp256k1.Hash(*message.ByteArray())
	if !publicKey.SchnorrVerify(&secpHash, signature) {
		return errors.Wrapf(ErrInvalidSignature, "kernel with excess %s", kernel.Excess)
	}
	return nil
}
