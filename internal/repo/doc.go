// Package repo — журнал событий жизненного цикла задач в PostgreSQL.
//
// Журнал фиксирует переходы состояний и сбои поведений; история значений
// переменных сюда не пишется. Журнал опционален: контроллер работает и
// без БД, тогда события остаются только в логах.
package repo
