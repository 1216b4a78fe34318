// Package config загружает конфигурацию контроллера из YAML-файлов.
//
// Конфигурация состоит из двух файлов:
//   - config.yaml — дескрипторы задач (tasks);
//   - values.yaml — описание beamline: имя, namespace и список IOC
//     (epicsConfiguration.iocs), из которого строятся DeviceSpec.
//
// Формат values.yaml совпадает с helm values деплоя beamline —
// контроллер читает тот же файл, что и остальная инфраструктура.
package config
