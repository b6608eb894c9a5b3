// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package keys

import "github.com/kvaas/tls13/ciphersuite"

// ComputeFinished implements [rfc8446:4.4.4]: finished_key is
// HKDF-Expand-Label(traffic_secret, "finished", "", Hash.length), and the
// Finished message's verify_data is HMAC(finished_key, transcript_hash).
func ComputeFinished(suite ciphersuite.Suite, trafficSecret ciphersuite.Hash, transcriptHash ciphersuite.Hash) ciphersuite.Hash {
	hmacTrafficSecret := suite.NewHMAC(trafficSecret.GetValue())
	var finishedKey ciphersuite.Hash
	finishedKey.SetZero(hmacTrafficSecret.Size())
	ciphersuite.HKDFExpandLabel(finishedKey.GetValue(), hmacTrafficSecret, "finished", nil)

	hmacFinishedKey := suite.NewHMAC(finishedKey.GetValue())
	hmacFinishedKey.Write(transcriptHash.GetValue())
	var result ciphersuite.Hash
	result.SetSum(hmacFinishedKey)
	return result
}

// NextApplicationTrafficSecret implements [rfc8446:7.2]'s KeyUpdate
// re-derivation:
//
//	application_traffic_secret_N+1 =
//		HKDF-Expand-Label(application_traffic_secret_N, "traffic upd", "", Hash.length)
func NextApplicationTrafficSecret(suite ciphersuite.Suite, current ciphersuite.Hash) ciphersuite.Hash {
	hmacCurrent := suite.NewHMAC(current.GetValue())
	var next ciphersuite.Hash
	next.SetZero(hmacCurrent.Size())
	ciphersuite.HKDFExpandLabel(next.GetValue(), hmacCurrent, "traffic upd", nil)
	return next
}

// TrafficKeyFromSecret expands an arbitrary traffic secret (used after a
// KeyUpdate, where the caller already has the new secret and only needs the
// AEAD key/IV pair, not a fresh Derive-Secret step).
func TrafficKeyFromSecret(suite ciphersuite.Suite, secret ciphersuite.Hash) (key, iv []byte) {
	key = make([]byte, suite.KeyLength())
	iv = make([]byte, suite.IVLength())
	hmacSecret := suite.NewHMAC(secret.GetValue())
	ciphersuite.HKDFExpandLabel(key, hmacSecret, "key", nil)
	ciphersuite.HKDFExpandLabel(iv, hmacSecret, "iv", nil)
	return key, iv
}
