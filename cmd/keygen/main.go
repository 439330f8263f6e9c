// Command keygen prints fresh key material as .env lines.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"tenant-auth-core/internal/keystore"
)

func main() {
	bits := flag.Int("rsa-bits", 2048, "RSA modulus size")
	flag.Parse()

	_, src, err := keystore.Generate(*bits)
	if err != nil {
		slog.Error("failed to generate key material", "error", err)
		os.Exit(1)
	}

	fmt.Printf("RSA_PRIVATE_KEY=%s\n", src.RSAPrivateKey)
	fmt.Printf("RSA_PUBLIC_KEY=%s\n", src.RSAPublicKey)
	fmt.Printf("AES_KEY=%s\n", src.AESKey)
	fmt.Printf("HMAC_KEY=%s\n", src.HMACKey)
}
