//go:build ignore

// generate_hash.go — утилита для генерации Argon2id хеша ключа админки.
// Запуск: go run scripts/generate_hash.go ваш_ключ
//
// Результат вставьте в .env как ADMIN_KEY_HASH.
package main

import (
	"fmt"
	"os"

	"serotonyl.ru/orbit-points/internal/features/admin"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Использование: go run scripts/generate_hash.go <ключ>")
		os.Exit(1)
	}

	hash, err := admin.HashKey(os.Args[1], admin.DefaultParams)
	if err != nil {
		fmt.Printf("Ошибка генерации хеша: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Хеш ключа (вставьте в .env как ADMIN_KEY_HASH):")
	fmt.Println(hash)
}
