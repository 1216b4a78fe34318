// Package pv реализует пространство имён process variables одной задачи.
//
// Namespace принадлежит ровно одному экземпляру задачи и содержит:
//   - объявленные входные и выходные переменные
//   - пять встроенных переменных (ENABLE, STATUS, MESSAGE, CYCLE_COUNT, RUN)
//
// Гарантии:
//   - чтение/запись атомарны по каждой переменной
//   - внешние записи ставятся в очередь и доставляются в hook задачи
//     до следующего чтения этой переменной внутри цикла
//     (at-least-once, порядок сохраняется per-variable)
//   - запись необъявленной переменной — ErrNotFound
//   - запись несовместимого значения — ErrTypeMismatch, старое значение
//     остаётся нетронутым
//
// Наружу изменения публикуются через интерфейс Publisher; его конкретная
// реализация (AMQP) живёт в internal/bus и движку не видна.
package pv
