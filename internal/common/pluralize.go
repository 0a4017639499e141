// Package common — pluralize.go содержит функции склонения для текстов,
// которые видит пользователь (описания транзакций, сообщения об ошибках).
package common

import "fmt"

// Pluralize выбирает форму слова для числа n (английские правила: 1 — ед. число).
func Pluralize(n int64, one, many string) string {
	if n == 1 || n == -1 {
		return one
	}
	return many
}

// FormatPoints создаёт строку вида "+20 points" или "-5 points".
// Знак «+» добавляется автоматически для неотрицательных значений.
//
// Примеры:
//
//	FormatPoints(20) → "+20 points"
//	FormatPoints(-5) → "-5 points"
//	FormatPoints(1)  → "+1 point"
func FormatPoints(amount int64) string {
	if amount >= 0 {
		return fmt.Sprintf("+%d %s", amount, Pluralize(amount, "point", "points"))
	}
	return fmt.Sprintf("%d %s", amount, Pluralize(amount, "point", "points"))
}
